package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/service"
)

// MockMessageWriter мок для messageWriter
type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestKafkaSyncTaskPublisher_PublishSyncTask(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	task := service.SyncTask{
		PaymentID:  "pay_1",
		MerchantID: "merchant_1",
		AttemptID:  "pay_1_1",
		Connector:  "stripe",
		Requeue:    true,
	}

	t.Run("success", func(t *testing.T) {
		// Arrange
		writer := &MockMessageWriter{}
		p := newPublisher(zap.NewNop(), writer, "payment.sync")
		p.now = func() time.Time { return now }

		var sent []kafka.Message
		writer.On("WriteMessages", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
			Return(nil).Once()

		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x01},
			SpanID:     trace.SpanID{0x02},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		// Act
		err := p.PublishSyncTask(ctx, task)

		// Assert
		require.NoError(t, err)
		writer.AssertExpectations(t)
		require.Len(t, sent, 1)
		require.Equal(t, []byte("pay_1"), sent[0].Key)

		var event SyncTaskEvent
		require.NoError(t, json.Unmarshal(sent[0].Value, &event))
		require.NotEmpty(t, event.EventID)
		require.Equal(t, "payment.sync.requested", event.EventType)
		require.Equal(t, 1, event.EventVersion)
		require.Equal(t, now, event.OccurredAt)
		require.Equal(t, "pay_1_1", event.AttemptID)
		require.Equal(t, "stripe", event.Connector)
		require.True(t, event.Requeue)

		traceparent := headerCarrier{msg: &sent[0]}.Get("traceparent")
		require.Contains(t, traceparent, sc.TraceID().String())
	})

	t.Run("writer failure", func(t *testing.T) {
		writer := &MockMessageWriter{}
		p := newPublisher(zap.NewNop(), writer, "payment.sync")
		writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker unavailable")).Once()

		err := p.PublishSyncTask(context.Background(), task)

		require.Error(t, err)
		writer.AssertExpectations(t)
	})
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	msg := kafka.Message{}
	c := headerCarrier{msg: &msg}

	c.Set("traceparent", "a")
	c.Set("traceparent", "b")

	require.Len(t, msg.Headers, 1)
	require.Equal(t, "b", c.Get("traceparent"))
	require.Equal(t, []string{"traceparent"}, c.Keys())
	require.Empty(t, c.Get("missing"))
}
