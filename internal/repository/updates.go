package repository

import (
	"encoding/json"
)

// PaymentIntentUpdate описывает изменение intent
// ApplyTo возвращает новую версию записи; хранилище пишет её условно по Version
type PaymentIntentUpdate interface {
	ApplyTo(intent PaymentIntent) PaymentIntent
}

// PaymentAttemptUpdate описывает изменение attempt
type PaymentAttemptUpdate interface {
	ApplyTo(attempt PaymentAttempt) PaymentAttempt
}

// IntentConfirmUpdate изменения intent после confirm
// Пустые строки и nil не затирают сохранённые значения, кроме Status
type IntentConfirmUpdate struct {
	Amount                    int64
	Currency                  string
	SetupFutureUsage          string
	Status                    IntentStatus
	CustomerID                string
	ShippingAddressID         string
	BillingAddressID          string
	ReturnURL                 string
	BusinessCountry           string
	BusinessLabel             string
	Description               string
	StatementDescriptorName   string
	StatementDescriptorSuffix string
	OrderDetails              []json.RawMessage
	Metadata                  json.RawMessage
	PaymentConfirmSource      string
}

// ApplyTo реализует PaymentIntentUpdate
func (u IntentConfirmUpdate) ApplyTo(intent PaymentIntent) PaymentIntent {
	intent.Amount = u.Amount
	intent.Currency = u.Currency
	intent.Status = u.Status
	intent.SetupFutureUsage = orString(u.SetupFutureUsage, intent.SetupFutureUsage)
	intent.CustomerID = orString(u.CustomerID, intent.CustomerID)
	intent.ShippingAddressID = orString(u.ShippingAddressID, intent.ShippingAddressID)
	intent.BillingAddressID = orString(u.BillingAddressID, intent.BillingAddressID)
	intent.ReturnURL = orString(u.ReturnURL, intent.ReturnURL)
	intent.BusinessCountry = orString(u.BusinessCountry, intent.BusinessCountry)
	intent.BusinessLabel = orString(u.BusinessLabel, intent.BusinessLabel)
	intent.Description = orString(u.Description, intent.Description)
	intent.StatementDescriptorName = orString(u.StatementDescriptorName, intent.StatementDescriptorName)
	intent.StatementDescriptorSuffix = orString(u.StatementDescriptorSuffix, intent.StatementDescriptorSuffix)
	intent.PaymentConfirmSource = orString(u.PaymentConfirmSource, intent.PaymentConfirmSource)
	if u.OrderDetails != nil {
		intent.OrderDetails = u.OrderDetails
	}
	if u.Metadata != nil {
		intent.Metadata = u.Metadata
	}
	return intent
}

// IntentActiveAttemptUpdate переключает активный attempt при создании нового поколения
type IntentActiveAttemptUpdate struct {
	ActiveAttemptID string
	AttemptCount    int16
}

// ApplyTo реализует PaymentIntentUpdate
func (u IntentActiveAttemptUpdate) ApplyTo(intent PaymentIntent) PaymentIntent {
	intent.ActiveAttemptID = u.ActiveAttemptID
	intent.AttemptCount = u.AttemptCount
	return intent
}

// AttemptConfirmUpdate изменения attempt после confirm
type AttemptConfirmUpdate struct {
	Amount                   int64
	Currency                 string
	Status                   AttemptStatus
	PaymentMethod            string
	PaymentMethodType        string
	PaymentExperience        string
	AuthenticationType       string
	BrowserInfo              json.RawMessage
	Connector                string
	MerchantConnectorID      string
	PaymentToken             string
	PaymentMethodData        json.RawMessage
	BusinessSubLabel         string
	StraightThroughAlgorithm json.RawMessage
	ErrorCode                *string
	ErrorMessage             *string
	AmountCapturable         *int64
	SurchargeAmount          *int64
	TaxAmount                *int64
}

// ApplyTo реализует PaymentAttemptUpdate
func (u AttemptConfirmUpdate) ApplyTo(attempt PaymentAttempt) PaymentAttempt {
	attempt.Amount = u.Amount
	attempt.Currency = u.Currency
	attempt.Status = u.Status
	attempt.PaymentMethod = orString(u.PaymentMethod, attempt.PaymentMethod)
	attempt.PaymentMethodType = orString(u.PaymentMethodType, attempt.PaymentMethodType)
	attempt.PaymentExperience = orString(u.PaymentExperience, attempt.PaymentExperience)
	attempt.AuthenticationType = orString(u.AuthenticationType, attempt.AuthenticationType)
	attempt.Connector = orString(u.Connector, attempt.Connector)
	attempt.MerchantConnectorID = orString(u.MerchantConnectorID, attempt.MerchantConnectorID)
	attempt.PaymentToken = orString(u.PaymentToken, attempt.PaymentToken)
	attempt.BusinessSubLabel = orString(u.BusinessSubLabel, attempt.BusinessSubLabel)
	if u.BrowserInfo != nil {
		attempt.BrowserInfo = u.BrowserInfo
	}
	if u.PaymentMethodData != nil {
		attempt.PaymentMethodData = u.PaymentMethodData
	}
	if u.StraightThroughAlgorithm != nil {
		attempt.StraightThroughAlgorithm = u.StraightThroughAlgorithm
	}
	if u.ErrorCode != nil {
		attempt.ErrorCode = *u.ErrorCode
	}
	if u.ErrorMessage != nil {
		attempt.ErrorMessage = *u.ErrorMessage
	}
	if u.AmountCapturable != nil {
		attempt.AmountCapturable = *u.AmountCapturable
	}
	if u.SurchargeAmount != nil {
		attempt.SurchargeAmount = u.SurchargeAmount
	}
	if u.TaxAmount != nil {
		attempt.TaxAmount = u.TaxAmount
	}
	return attempt
}

// Apply применяет CustomerUpdate к записи покупателя
func (u CustomerUpdate) Apply(c Customer) Customer {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.PhoneCountryCode != nil {
		c.PhoneCountryCode = *u.PhoneCountryCode
	}
	return c
}

// IsEmpty true, если изменений нет
func (u CustomerUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.PhoneCountryCode == nil
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
