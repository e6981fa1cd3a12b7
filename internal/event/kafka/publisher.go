package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/service"
	platformkafka "github.com/shestoi/GoBigTech/services/payment/platform/kafka"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

const (
	syncTaskEventType    = "payment.sync.requested"
	syncTaskEventVersion = 1
)

// messageWriter часть kafka.Writer, которой пользуется publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SyncTaskEvent payload задачи синхронизации статуса attempt
type SyncTaskEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	EventVersion int       `json:"event_version"`
	OccurredAt   time.Time `json:"occurred_at"`
	PaymentID    string    `json:"payment_id"`
	MerchantID   string    `json:"merchant_id"`
	AttemptID    string    `json:"attempt_id"`
	Connector    string    `json:"connector,omitempty"`
	Requeue      bool      `json:"requeue"`
}

// KafkaSyncTaskPublisher реализует service.SyncTaskPublisher используя Kafka
type KafkaSyncTaskPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
	now    func() time.Time
}

var _ service.SyncTaskPublisher = (*KafkaSyncTaskPublisher)(nil)

// NewKafkaSyncTaskPublisher создаёт publisher задач process tracker
func NewKafkaSyncTaskPublisher(logger *zap.Logger, cfg platformkafka.Config, topic string) *KafkaSyncTaskPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, //задачи одного платежа попадают в одну партицию
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(logger, writer, topic)
}

func newPublisher(logger *zap.Logger, writer messageWriter, topic string) *KafkaSyncTaskPublisher {
	return &KafkaSyncTaskPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// Close закрывает Kafka writer
func (p *KafkaSyncTaskPublisher) Close() error {
	return p.writer.Close()
}

// PublishSyncTask публикует задачу на опрос статуса платежа у коннектора
func (p *KafkaSyncTaskPublisher) PublishSyncTask(ctx context.Context, task service.SyncTask) error {
	event := SyncTaskEvent{
		EventID:      uuid.New().String(),
		EventType:    syncTaskEventType,
		EventVersion: syncTaskEventVersion,
		OccurredAt:   p.now().UTC(),
		PaymentID:    task.PaymentID,
		MerchantID:   task.MerchantID,
		AttemptID:    task.AttemptID,
		Connector:    task.Connector,
		Requeue:      task.Requeue,
	}

	valueBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal sync task event",
			zap.Error(err),
			zap.String("payment_id", task.PaymentID),
		)
		return err
	}

	message := kafka.Message{
		Key:   []byte(task.PaymentID),
		Value: valueBytes,
	}
	// trace context уходит вместе с сообщением
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &message})

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		observability.L(ctx, p.logger).Error("failed to publish sync task event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("payment_id", task.PaymentID),
			zap.String("attempt_id", task.AttemptID),
		)
		return err
	}

	observability.L(ctx, p.logger).Info("sync task event published",
		zap.String("topic", p.topic),
		zap.String("event_id", event.EventID),
		zap.String("payment_id", task.PaymentID),
		zap.String("attempt_id", task.AttemptID),
	)
	return nil
}
