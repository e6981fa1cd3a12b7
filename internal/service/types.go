package service

import (
	"encoding/json"
	"sort"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// PaymentsRequest входной запрос confirm (тело POST /payments/.../confirm)
// Сумма фиксируется при создании intent и здесь не передаётся
type PaymentsRequest struct {
	PaymentID    string `json:"payment_id,omitempty"`
	MerchantID   string `json:"merchant_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`

	CustomerID       string           `json:"customer_id,omitempty"`
	Customer         *CustomerDetails `json:"customer,omitempty"`
	Email            string           `json:"email,omitempty" validate:"omitempty,email"`
	Name             string           `json:"name,omitempty"`
	Phone            string           `json:"phone,omitempty"`
	PhoneCountryCode string           `json:"phone_country_code,omitempty"`

	Description               string `json:"description,omitempty"`
	ReturnURL                 string `json:"return_url,omitempty" validate:"omitempty,url"`
	SetupFutureUsage          string `json:"setup_future_usage,omitempty" validate:"omitempty,oneof=on_session off_session"`
	OffSession                *bool  `json:"off_session,omitempty"`
	StatementDescriptorName   string `json:"statement_descriptor_name,omitempty" validate:"omitempty,max=255"`
	StatementDescriptorSuffix string `json:"statement_descriptor_suffix,omitempty" validate:"omitempty,max=255"`
	BusinessSubLabel          string `json:"business_sub_label,omitempty"`

	PaymentMethod      string             `json:"payment_method,omitempty"`
	PaymentMethodType  string             `json:"payment_method_type,omitempty"`
	PaymentExperience  string             `json:"payment_experience,omitempty"`
	PaymentMethodData  *PaymentMethodData `json:"payment_method_data,omitempty"`
	PaymentToken       string             `json:"payment_token,omitempty"`
	CardCVC            string             `json:"card_cvc,omitempty" validate:"omitempty,numeric,min=3,max=4"`
	CaptureMethod      string             `json:"capture_method,omitempty" validate:"omitempty,oneof=automatic manual manual_multiple scheduled"`
	AuthenticationType string             `json:"authentication_type,omitempty" validate:"omitempty,oneof=three_ds no_three_ds"`

	MandateData *MandateData `json:"mandate_data,omitempty"`
	MandateID   string       `json:"mandate_id,omitempty"`

	Shipping *AddressDetails `json:"shipping,omitempty"`
	Billing  *AddressDetails `json:"billing,omitempty"`

	BrowserInfo map[string]any `json:"browser_info,omitempty"`

	OrderDetails              []OrderDetail   `json:"order_details,omitempty" validate:"omitempty,dive"`
	Metadata                  json.RawMessage `json:"metadata,omitempty"`
	AllowedPaymentMethodTypes []string        `json:"allowed_payment_method_types,omitempty"`
	ConnectorMetadata         json.RawMessage `json:"connector_metadata,omitempty"`
	FeatureMetadata           json.RawMessage `json:"feature_metadata,omitempty"`

	SurchargeDetails *RequestSurchargeDetails `json:"surcharge_details,omitempty"`

	Routing                  *RoutingOverride          `json:"routing,omitempty"`
	MerchantConnectorDetails *MerchantConnectorDetails `json:"merchant_connector_details,omitempty"`

	RetryAction string `json:"retry_action,omitempty" validate:"omitempty,oneof=manual_retry requeue"`
}

// CustomerDetails вложенный объект customer в запросе
type CustomerDetails struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phone_country_code,omitempty"`
}

// AddressDetails адрес в запросе
type AddressDetails struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Line1       string `json:"line1,omitempty"`
	Line2       string `json:"line2,omitempty"`
	Line3       string `json:"line3,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Country     string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	Phone       string `json:"phone,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
}

// OrderDetail позиция заказа
type OrderDetail struct {
	ProductName string `json:"product_name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"min=1"`
	Amount      int64  `json:"amount" validate:"min=0"`
	ProductImg  string `json:"product_img_link,omitempty"`
}

// RequestSurchargeDetails надбавка, заявленная клиентом
type RequestSurchargeDetails struct {
	SurchargeAmount int64  `json:"surcharge_amount" validate:"min=0"`
	TaxAmount       *int64 `json:"tax_amount,omitempty"`
}

// taxOrZero налог на надбавку, отсутствие равно нулю
func (r RequestSurchargeDetails) taxOrZero() int64 {
	if r.TaxAmount == nil {
		return 0
	}
	return *r.TaxAmount
}

// IsZero true, если заявлена нулевая надбавка
func (r RequestSurchargeDetails) IsZero() bool {
	return r.SurchargeAmount == 0 && r.taxOrZero() == 0
}

// Matches сравнивает с надбавкой из кэша session-вызова
func (r RequestSurchargeDetails) Matches(cached repository.SurchargeDetails) bool {
	return r.SurchargeAmount == cached.SurchargeAmount && r.taxOrZero() == cached.TaxOnSurchargeAmount
}

// RoutingOverride явный выбор коннектора в confirm (straight-through routing)
type RoutingOverride struct {
	Connector           string `json:"connector" validate:"required"`
	MerchantConnectorID string `json:"merchant_connector_id,omitempty"`
}

// MerchantConnectorDetails переопределение кредов коннектора на один платёж
type MerchantConnectorDetails struct {
	CredsIdentifier string          `json:"creds_identifier" validate:"required"`
	EncodedData     json.RawMessage `json:"encoded_data" validate:"required"`
}

// MandateData данные для создания нового мандата
type MandateData struct {
	CustomerAcceptance *CustomerAcceptance `json:"customer_acceptance,omitempty"`
	MandateType        json.RawMessage     `json:"mandate_type,omitempty"`
}

// CustomerAcceptance согласие покупателя на мандат
type CustomerAcceptance struct {
	AcceptanceType string `json:"acceptance_type" validate:"required,oneof=online offline"`
	AcceptedAt     string `json:"accepted_at,omitempty"`
}

// PaymentMethodData данные способа оплаты; заполнен ровно один вариант
type PaymentMethodData struct {
	Card         *CardData       `json:"card,omitempty"`
	Wallet       json.RawMessage `json:"wallet,omitempty"`
	PayLater     json.RawMessage `json:"pay_later,omitempty"`
	BankRedirect json.RawMessage `json:"bank_redirect,omitempty"`
	BankTransfer json.RawMessage `json:"bank_transfer,omitempty"`
	Crypto       json.RawMessage `json:"crypto,omitempty"`
	Upi          json.RawMessage `json:"upi,omitempty"`
	Voucher      json.RawMessage `json:"voucher,omitempty"`
	GiftCard     json.RawMessage `json:"gift_card,omitempty"`
}

// CardData данные карты
type CardData struct {
	CardNumber     string `json:"card_number" validate:"required,credit_card"`
	CardExpMonth   string `json:"card_exp_month" validate:"required,len=2,numeric"`
	CardExpYear    string `json:"card_exp_year" validate:"required,numeric"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	CardCVC        string `json:"card_cvc,omitempty" validate:"omitempty,numeric,min=3,max=4"`
	CardNetwork    string `json:"card_network,omitempty"`
	CardType       string `json:"card_type,omitempty" validate:"omitempty,oneof=credit debit"`
	CardIssuer     string `json:"card_issuer,omitempty"`
}

// variants перечисляет заполненные варианты в порядке объявления
func (d *PaymentMethodData) variants() []string {
	var kinds []string
	if d.Card != nil {
		kinds = append(kinds, "card")
	}
	raw := []struct {
		kind string
		data json.RawMessage
	}{
		{"wallet", d.Wallet},
		{"pay_later", d.PayLater},
		{"bank_redirect", d.BankRedirect},
		{"bank_transfer", d.BankTransfer},
		{"crypto", d.Crypto},
		{"upi", d.Upi},
		{"voucher", d.Voucher},
		{"gift_card", d.GiftCard},
	}
	for _, r := range raw {
		if len(r.data) > 0 && string(r.data) != "null" {
			kinds = append(kinds, r.kind)
		}
	}
	return kinds
}

// Kind возвращает способ оплаты, соответствующий заполненному варианту
func (d *PaymentMethodData) Kind() string {
	kinds := d.variants()
	if len(kinds) == 0 {
		return ""
	}
	return kinds[0]
}

// PaymentMethodType выводит тип способа оплаты из данных:
// для карты card_type (по умолчанию credit), для остальных единственный ключ объекта
func (d *PaymentMethodData) PaymentMethodType() string {
	if d.Card != nil {
		if d.Card.CardType != "" {
			return d.Card.CardType
		}
		return "credit"
	}
	var raw json.RawMessage
	switch d.Kind() {
	case "wallet":
		raw = d.Wallet
	case "pay_later":
		raw = d.PayLater
	case "bank_redirect":
		raw = d.BankRedirect
	case "bank_transfer":
		raw = d.BankTransfer
	case "crypto":
		return "crypto_currency"
	case "upi":
		return "upi_collect"
	case "voucher":
		raw = d.Voucher
	case "gift_card":
		raw = d.GiftCard
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
		return ""
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

// MandateType классификация мандата в запросе
type MandateType string

const (
	MandateNone      MandateType = ""
	MandateNew       MandateType = "new_mandate"
	MandateRecurring MandateType = "recurring_mandate"
)

// AuthFlow кто вызывает confirm: мерчант (секретный ключ) или клиент (publishable key + client secret)
type AuthFlow string

const (
	AuthFlowMerchant AuthFlow = "merchant"
	AuthFlowClient   AuthFlow = "client"
)

// HeaderPayload значения из заголовков запроса
type HeaderPayload struct {
	PaymentConfirmSource string
	AuthFlow             AuthFlow
}

// ValidateResult результат валидации запроса
type ValidateResult struct {
	MerchantID    string
	PaymentID     string
	MandateType   MandateType
	StorageScheme string
	Requeue       bool
}

// Flow тег платёжного потока, с которым работает агрегат
type Flow string

const (
	FlowAuthorize Flow = "authorize"
)

// MandateResolution токен, способ оплаты и связка с мандатом
type MandateResolution struct {
	Token                string
	PaymentMethod        string
	PaymentMethodType    string
	SetupMandate         *MandateData
	RecurringMandateData *RecurringMandateData
	MandateConnector     *MandateConnector
}

// RecurringMandateData данные сохранённого мандата для повторного списания
type RecurringMandateData struct {
	MandateID          string
	PaymentMethodType  string
	ConnectorMandateID string
}

// MandateConnector коннектор, через который был создан мандат
type MandateConnector struct {
	Connector           string
	MerchantConnectorID string
}

// PaymentAddress адреса платежа
type PaymentAddress struct {
	Shipping *repository.Address
	Billing  *repository.Address
}

// FraudSuggestion рекомендация проверки на фрод
type FraudSuggestion string

const (
	FraudNone         FraudSuggestion = ""
	FraudCancel       FraudSuggestion = "frm_cancel_transaction"
	FraudManualReview FraudSuggestion = "frm_manual_review"
)

// FraudCheckResult результат пре-проверки на фрод
type FraudCheckResult struct {
	Suggestion FraudSuggestion
	Status     string
	Reason     string
}

// ConnectorChoice выбранный коннектор
type ConnectorChoice struct {
	Connector           string
	MerchantConnectorID string
	StraightThrough     bool
}

// PaymentData агрегат одного вызова confirm; принадлежит только этому вызову
type PaymentData struct {
	Flow              Flow
	Intent            repository.PaymentIntent
	Attempt           repository.PaymentAttempt
	Currency          string
	Amount            int64
	Email             string
	Token             string
	Address           PaymentAddress
	Mandate           MandateResolution
	Confirm           bool
	PaymentMethodData *PaymentMethodData
	CardCVC           string
	CredsIdentifier   string
	SurchargeDetails  *repository.SurchargeDetails
	FraudMessage      *FraudCheckResult
	ForceSync         bool
}

// ConfirmResponse снимок статусов после confirm
type ConfirmResponse struct {
	PaymentID        string                       `json:"payment_id"`
	MerchantID       string                       `json:"merchant_id"`
	Status           repository.IntentStatus      `json:"status"`
	AttemptID        string                       `json:"attempt_id"`
	AttemptStatus    repository.AttemptStatus     `json:"attempt_status"`
	Amount           int64                        `json:"amount"`
	Currency         string                       `json:"currency"`
	AmountCapturable int64                        `json:"amount_capturable"`
	Connector        string                       `json:"connector,omitempty"`
	PaymentMethod    string                       `json:"payment_method,omitempty"`
	ErrorCode        string                       `json:"error_code,omitempty"`
	ErrorMessage     string                       `json:"error_message,omitempty"`
	Surcharge        *repository.SurchargeDetails `json:"surcharge_details,omitempty"`
	ClientSecret     string                       `json:"client_secret,omitempty"`
	ReturnURL        string                       `json:"return_url,omitempty"`
}

// newConfirmResponse формирует ответ из агрегата
func newConfirmResponse(pd *PaymentData) *ConfirmResponse {
	return &ConfirmResponse{
		PaymentID:        pd.Intent.PaymentID,
		MerchantID:       pd.Intent.MerchantID,
		Status:           pd.Intent.Status,
		AttemptID:        pd.Attempt.AttemptID,
		AttemptStatus:    pd.Attempt.Status,
		Amount:           pd.Amount,
		Currency:         pd.Currency,
		AmountCapturable: pd.Attempt.AmountCapturable,
		Connector:        pd.Attempt.Connector,
		PaymentMethod:    pd.Attempt.PaymentMethod,
		ErrorCode:        pd.Attempt.ErrorCode,
		ErrorMessage:     pd.Attempt.ErrorMessage,
		Surcharge:        pd.SurchargeDetails,
		ClientSecret:     pd.Intent.ClientSecret,
		ReturnURL:        pd.Intent.ReturnURL,
	}
}
