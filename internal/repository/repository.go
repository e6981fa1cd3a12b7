package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// IntentStatus статус PaymentIntent
type IntentStatus string

const (
	IntentSucceeded              IntentStatus = "succeeded"
	IntentFailed                 IntentStatus = "failed"
	IntentCancelled              IntentStatus = "cancelled"
	IntentProcessing             IntentStatus = "processing"
	IntentRequiresCustomerAction IntentStatus = "requires_customer_action"
	IntentRequiresMerchantAction IntentStatus = "requires_merchant_action"
	IntentRequiresPaymentMethod  IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation   IntentStatus = "requires_confirmation"
	IntentRequiresCapture        IntentStatus = "requires_capture"
	IntentPartiallyCaptured      IntentStatus = "partially_captured"
)

// IsTerminal возвращает true для финальных статусов (succeeded/cancelled/failed)
func (s IntentStatus) IsTerminal() bool {
	switch s {
	case IntentSucceeded, IntentCancelled, IntentFailed:
		return true
	}
	return false
}

// AttemptStatus статус PaymentAttempt
type AttemptStatus string

const (
	AttemptStarted                     AttemptStatus = "started"
	AttemptAuthenticationFailed        AttemptStatus = "authentication_failed"
	AttemptRouterDeclined              AttemptStatus = "router_declined"
	AttemptAuthenticationPending       AttemptStatus = "authentication_pending"
	AttemptAuthenticationSuccessful    AttemptStatus = "authentication_successful"
	AttemptAuthorized                  AttemptStatus = "authorized"
	AttemptAuthorizationFailed         AttemptStatus = "authorization_failed"
	AttemptCharged                     AttemptStatus = "charged"
	AttemptAuthorizing                 AttemptStatus = "authorizing"
	AttemptCodInitiated                AttemptStatus = "cod_initiated"
	AttemptVoided                      AttemptStatus = "voided"
	AttemptVoidInitiated               AttemptStatus = "void_initiated"
	AttemptCaptureInitiated            AttemptStatus = "capture_initiated"
	AttemptCaptureFailed               AttemptStatus = "capture_failed"
	AttemptVoidFailed                  AttemptStatus = "void_failed"
	AttemptAutoRefunded                AttemptStatus = "auto_refunded"
	AttemptPartialCharged              AttemptStatus = "partial_charged"
	AttemptUnresolved                  AttemptStatus = "unresolved"
	AttemptPending                     AttemptStatus = "pending"
	AttemptFailure                     AttemptStatus = "failure"
	AttemptPaymentMethodAwaited        AttemptStatus = "payment_method_awaited"
	AttemptConfirmationAwaited         AttemptStatus = "confirmation_awaited"
	AttemptDeviceDataCollectionPending AttemptStatus = "device_data_collection_pending"
)

// PaymentIntent представляет доменную модель намерения оплаты (одна покупка)
// Создаётся при create (вне этого сервиса), изменяется confirm, никогда не удаляется
type PaymentIntent struct {
	PaymentID                 string
	MerchantID                string
	Status                    IntentStatus
	Amount                    int64 // в минорных единицах валюты
	Currency                  string
	AmountCaptured            *int64
	CustomerID                string
	Description               string
	ReturnURL                 string
	Metadata                  json.RawMessage
	ConnectorMetadata         json.RawMessage
	FeatureMetadata           json.RawMessage
	AllowedPaymentMethodTypes json.RawMessage
	OrderDetails              []json.RawMessage
	ShippingAddressID         string
	BillingAddressID          string
	StatementDescriptorName   string
	StatementDescriptorSuffix string
	SetupFutureUsage          string
	OffSession                *bool
	ClientSecret              string
	ActiveAttemptID           string
	AttemptCount              int16
	BusinessCountry           string
	BusinessLabel             string
	PaymentLinkID             string
	PaymentConfirmSource      string
	UpdatedBy                 string
	Version                   int64 // тег оптимистичной блокировки
	CreatedAt                 time.Time
	ModifiedAt                time.Time
}

// PaymentAttempt представляет одну попытку исполнения intent через один коннектор
type PaymentAttempt struct {
	AttemptID                string
	PaymentID                string
	MerchantID               string
	Status                   AttemptStatus
	Amount                   int64
	Currency                 string
	SurchargeAmount          *int64
	TaxAmount                *int64
	PaymentMethod            string
	PaymentMethodType        string
	PaymentExperience        string
	CaptureMethod            string
	AuthenticationType       string
	Connector                string
	MerchantConnectorID      string
	BrowserInfo              json.RawMessage
	PaymentToken             string
	PaymentMethodData        json.RawMessage
	MandateID                string
	MandateDetails           json.RawMessage
	BusinessSubLabel         string
	StraightThroughAlgorithm json.RawMessage
	ErrorCode                string
	ErrorMessage             string
	AmountCapturable         int64
	UpdatedBy                string
	Version                  int64
	CreatedAt                time.Time
	ModifiedAt               time.Time
}

// Address адрес доставки или биллинга, переиспользуется между вызовами confirm
type Address struct {
	AddressID   string
	MerchantID  string
	CustomerID  string
	PaymentID   string
	FirstName   string
	LastName    string
	Line1       string
	Line2       string
	Line3       string
	City        string
	State       string
	Zip         string
	Country     string
	Phone       string
	CountryCode string
	Email       string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Customer покупатель мерчанта
type Customer struct {
	CustomerID       string
	MerchantID       string
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
	Description      string
	Metadata         json.RawMessage
	CreatedAt        time.Time
	ModifiedAt       time.Time
}

// CustomerUpdate содержит только изменённые поля покупателя (nil = не трогать)
type CustomerUpdate struct {
	Name             *string
	Email            *string
	Phone            *string
	PhoneCountryCode *string
}

// MandateStatus статус мандата
type MandateStatus string

const (
	MandateActive   MandateStatus = "active"
	MandateInactive MandateStatus = "inactive"
	MandatePending  MandateStatus = "pending"
	MandateRevoked  MandateStatus = "revoked"
)

// Mandate сохранённое разрешение на повторные списания
type Mandate struct {
	MandateID           string
	MerchantID          string
	CustomerID          string
	PaymentMethodID     string
	PaymentMethod       string
	PaymentMethodType   string
	Status              MandateStatus
	MandateType         string
	Connector           string
	MerchantConnectorID string
	ConnectorMandateID  string
	CreatedAt           time.Time
}

// PaymentLink ссылка на хостинговую страницу оплаты
type PaymentLink struct {
	PaymentLinkID      string
	PaymentID          string
	MerchantID         string
	LinkToPay          string
	Amount             int64
	Currency           string
	FulfilmentTime     *time.Time
	CustomMerchantName string
	CreatedAt          time.Time
}

// MerchantAccount контекст мерчанта (управление настройками вне этого сервиса)
type MerchantAccount struct {
	MerchantID            string
	MerchantName          string
	ReturnURL             string
	PublishableKey        string
	StorageScheme         string
	IntentFulfillmentTime time.Duration // 0 = дефолт сервиса
	PaymentLinkConfig     json.RawMessage
}

// Config запись key-value конфигурации (override кредов коннектора и т.п.)
type Config struct {
	Key   string
	Value string
}

// PaymentIntentRepository определяет контракт хранилища intent
type PaymentIntentRepository interface {
	// FindPaymentIntent возвращает ErrNotFound, если intent не найден
	FindPaymentIntent(ctx context.Context, paymentID, merchantID string) (PaymentIntent, error)

	// UpdatePaymentIntent применяет update условно: только если version в хранилище
	// совпадает с intent.Version. Иначе ErrNotFound (строка изменилась под нами)
	UpdatePaymentIntent(ctx context.Context, intent PaymentIntent, update PaymentIntentUpdate, updatedBy string) (PaymentIntent, error)
}

// PaymentAttemptRepository определяет контракт хранилища attempt
type PaymentAttemptRepository interface {
	// FindPaymentAttempt возвращает ErrNotFound, если attempt не найден
	FindPaymentAttempt(ctx context.Context, paymentID, merchantID, attemptID string) (PaymentAttempt, error)

	// InsertPaymentAttempt возвращает ErrAlreadyExists при дубликате attempt_id
	InsertPaymentAttempt(ctx context.Context, attempt PaymentAttempt) (PaymentAttempt, error)

	// UpdatePaymentAttempt условное обновление по version (см. UpdatePaymentIntent)
	UpdatePaymentAttempt(ctx context.Context, attempt PaymentAttempt, update PaymentAttemptUpdate, updatedBy string) (PaymentAttempt, error)
}

// AddressRepository определяет контракт хранилища адресов
type AddressRepository interface {
	FindAddress(ctx context.Context, merchantID, paymentID, addressID string) (Address, error)
	InsertAddress(ctx context.Context, address Address) (Address, error)
	UpdateAddress(ctx context.Context, address Address) (Address, error)
}

// CustomerRepository определяет контракт хранилища покупателей
type CustomerRepository interface {
	FindCustomer(ctx context.Context, customerID, merchantID string) (Customer, error)
	InsertCustomer(ctx context.Context, customer Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, customerID, merchantID string, update CustomerUpdate) (Customer, error)
}

// MandateRepository только чтение мандатов
type MandateRepository interface {
	FindMandate(ctx context.Context, merchantID, mandateID string) (Mandate, error)
}

// PaymentLinkRepository только чтение ссылок на оплату
type PaymentLinkRepository interface {
	FindPaymentLink(ctx context.Context, paymentLinkID string) (PaymentLink, error)
}

// ConfigRepository key-value конфигурация
type ConfigRepository interface {
	FindConfig(ctx context.Context, key string) (Config, error)
	InsertConfig(ctx context.Context, cfg Config) (Config, error)
	UpdateConfig(ctx context.Context, cfg Config) (Config, error)
}

// MerchantRepository только чтение аккаунтов мерчантов
type MerchantRepository interface {
	FindMerchantAccount(ctx context.Context, merchantID string) (MerchantAccount, error)
}

// Store объединяет все контракты хранилища, которые использует confirm
type Store interface {
	PaymentIntentRepository
	PaymentAttemptRepository
	AddressRepository
	CustomerRepository
	MandateRepository
	PaymentLinkRepository
	ConfigRepository
	MerchantRepository
}

var (
	// ErrNotFound возвращается, когда запись не найдена или условное обновление не совпало по version
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists возвращается при нарушении уникальности
	ErrAlreadyExists = errors.New("record already exists")
)
