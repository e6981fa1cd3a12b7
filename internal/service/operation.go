package service

import (
	"context"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// OperationKind платёжная операция, для которой собирается конвейер
type OperationKind string

const (
	OperationConfirm OperationKind = "confirm"
)

// RequestValidator проверяет запрос до любого обращения к хранилищу
type RequestValidator interface {
	ValidateRequest(req *PaymentsRequest, merchant repository.MerchantAccount) (ValidateResult, error)
}

// TrackerGetter загружает или создаёт все записи, нужные операции, и сводит на них запрос
type TrackerGetter interface {
	GetTrackers(ctx context.Context, paymentID string, req *PaymentsRequest, mandateType MandateType, merchant repository.MerchantAccount, authFlow AuthFlow) (*PaymentData, *CustomerDetails, error)
}

// Domain шаги между загрузкой и сохранением
type Domain interface {
	GetOrCreateCustomerDetails(ctx context.Context, pd *PaymentData, details *CustomerDetails, merchantID string) (*repository.Customer, *repository.CustomerUpdate, error)
	MakePmData(ctx context.Context, pd *PaymentData) (*PaymentMethodData, error)
	GetConnector(ctx context.Context, merchant repository.MerchantAccount, req *PaymentsRequest, pd *PaymentData) (ConnectorChoice, error)
	AddTaskToProcessTracker(ctx context.Context, attempt repository.PaymentAttempt, requeue bool) error
}

// TrackerUpdater сохраняет агрегат
type TrackerUpdater interface {
	UpdateTrackers(ctx context.Context, pd *PaymentData, customer *repository.Customer, customerUpdate *repository.CustomerUpdate, merchant repository.MerchantAccount, fraud *FraudCheckResult, header HeaderPayload) (*PaymentData, error)
}

// Operation полный набор фаз одной операции
type Operation interface {
	RequestValidator
	TrackerGetter
	Domain
	TrackerUpdater
}

const defaultIntentFulfillmentTime = 15 * time.Minute

// Deps общие зависимости операций; передаются явно в конструкторы
type Deps struct {
	Store     repository.Store
	Surcharge repository.SurchargeCache
	Tokens    repository.PaymentMethodTokenCache
	Router    ConnectorRouter
	Tasks     SyncTaskPublisher
	Logger    *zap.Logger

	// IntentFulfillmentTime срок жизни client secret, если у мерчанта не задан свой
	IntentFulfillmentTime time.Duration
	// DefaultProductImg картинка товара для страницы оплаты, если в order details её нет
	DefaultProductImg string

	Now   func() time.Time
	NewID func(prefix string) string
}

// withDefaults заполняет незаданные зависимости
func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Router == nil {
		d.Router = StaticRouter{}
	}
	if d.IntentFulfillmentTime <= 0 {
		d.IntentFulfillmentTime = defaultIntentFulfillmentTime
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = generateID
	}
	return d
}

// generateID формирует идентификатор вида <prefix>_<xid>
func generateID(prefix string) string {
	return prefix + "_" + xid.New().String()
}

// registry операции по виду; выбирается на входе в конвейер
type registry map[OperationKind]Operation

func newRegistry(deps Deps) registry {
	return registry{
		OperationConfirm: NewPaymentConfirm(deps),
	}
}
