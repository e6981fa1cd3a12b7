package service

import (
	"context"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// ConnectorRouter выбирает коннектор, если ни запрос, ни attempt его не задают
// Алгоритм маршрутизации живёт вне confirm
type ConnectorRouter interface {
	Route(ctx context.Context, merchant repository.MerchantAccount, intent repository.PaymentIntent, attempt repository.PaymentAttempt) (ConnectorChoice, error)
}

// FraudChecker пре-проверка платежа на фрод перед авторизацией
type FraudChecker interface {
	PreCheck(ctx context.Context, pd *PaymentData) (FraudCheckResult, error)
}

// SyncTaskPublisher ставит задачу синхронизации статуса attempt в process tracker
type SyncTaskPublisher interface {
	PublishSyncTask(ctx context.Context, task SyncTask) error
}

// SyncTask задача на повторный опрос статуса платежа у коннектора
type SyncTask struct {
	PaymentID  string
	MerchantID string
	AttemptID  string
	Connector  string
	Requeue    bool
}

// StaticRouter всегда возвращает один и тот же коннектор (дефолт из конфига)
type StaticRouter struct {
	Connector string
}

// Route реализует ConnectorRouter
func (r StaticRouter) Route(ctx context.Context, merchant repository.MerchantAccount, intent repository.PaymentIntent, attempt repository.PaymentAttempt) (ConnectorChoice, error) {
	if r.Connector == "" {
		return ConnectorChoice{}, missingField("connector")
	}
	return ConnectorChoice{Connector: r.Connector}, nil
}

// NoopFraudChecker не даёт рекомендаций (фрод-проверка отключена)
type NoopFraudChecker struct{}

// PreCheck реализует FraudChecker
func (NoopFraudChecker) PreCheck(ctx context.Context, pd *PaymentData) (FraudCheckResult, error) {
	return FraudCheckResult{Suggestion: FraudNone}, nil
}
