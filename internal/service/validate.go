package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

var paymentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// newValidator валидатор структур запроса; в ошибках поля называются по json тегам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest проверяет запрос confirm; ничего не читает и не пишет
func (c *PaymentConfirm) ValidateRequest(req *PaymentsRequest, merchant repository.MerchantAccount) (ValidateResult, error) {
	if err := validateCustomerDetails(req); err != nil {
		return ValidateResult{}, err
	}

	if req.PaymentID != "" && !paymentIDPattern.MatchString(req.PaymentID) {
		return ValidateResult{}, validationError("malformed_identifier", "payment_id %q is malformed", req.PaymentID)
	}

	if req.MerchantID != "" && req.MerchantID != merchant.MerchantID {
		return ValidateResult{}, validationError("merchant_id_mismatch", "merchant_id in request does not match the authenticated merchant")
	}

	if err := c.validateStruct(req); err != nil {
		return ValidateResult{}, err
	}

	if err := validatePaymentMethodFields(req); err != nil {
		return ValidateResult{}, err
	}

	if req.PaymentMethodData != nil && req.PaymentMethodData.Card != nil {
		if err := validateCardExpiry(req.PaymentMethodData.Card, c.deps.Now()); err != nil {
			return ValidateResult{}, err
		}
	}

	mandateType, err := validateMandate(req)
	if err != nil {
		return ValidateResult{}, err
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = c.deps.NewID("pay")
	}

	return ValidateResult{
		MerchantID:    merchant.MerchantID,
		PaymentID:     paymentID,
		MandateType:   mandateType,
		StorageScheme: merchant.StorageScheme,
		Requeue:       req.RetryAction == "requeue",
	}, nil
}

func (c *PaymentConfirm) validateStruct(req *PaymentsRequest) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		e := validationError("invalid_field", "field %s failed on the '%s' rule", fe.Namespace(), fe.Tag())
		e.Field = fe.Field()
		return e
	}
	return validationError("invalid_request", "%v", err)
}

// validateCustomerDetails поля покупателя на верхнем уровне и в объекте customer не должны расходиться
func validateCustomerDetails(req *PaymentsRequest) error {
	if req.Customer == nil {
		return nil
	}
	pairs := []struct {
		field    string
		top, obj string
	}{
		{"customer_id", req.CustomerID, req.Customer.ID},
		{"email", req.Email, req.Customer.Email},
		{"name", req.Name, req.Customer.Name},
		{"phone", req.Phone, req.Customer.Phone},
		{"phone_country_code", req.PhoneCountryCode, req.Customer.PhoneCountryCode},
	}
	for _, p := range pairs {
		if p.top != "" && p.obj != "" && p.top != p.obj {
			e := validationError("conflicting_customer_fields", "%s and customer.%s do not match", p.field, p.field)
			e.Field = p.field
			return e
		}
	}
	return nil
}

// validatePaymentMethodFields данные и тип способа оплаты требуют payment_method
func validatePaymentMethodFields(req *PaymentsRequest) error {
	if req.PaymentMethodData != nil {
		if req.PaymentMethod == "" {
			return missingField("payment_method")
		}
		kinds := req.PaymentMethodData.variants()
		switch {
		case len(kinds) == 0:
			return validationError("invalid_payment_method_data", "payment_method_data is empty")
		case len(kinds) > 1:
			return validationError("invalid_payment_method_data", "payment_method_data must contain exactly one payment method, got %s", strings.Join(kinds, ", "))
		case kinds[0] != req.PaymentMethod:
			return validationError("payment_method_mismatch", "payment_method_data of kind %s does not match payment_method %s", kinds[0], req.PaymentMethod)
		}
	}
	if req.PaymentMethodType != "" && req.PaymentMethod == "" {
		return missingField("payment_method")
	}
	return nil
}

// validateCardExpiry месяц 01-12, год из 2 или 4 цифр, срок не истёк
func validateCardExpiry(card *CardData, now time.Time) error {
	month, err := strconv.Atoi(card.CardExpMonth)
	if err != nil || month < 1 || month > 12 {
		e := validationError("invalid_card_expiry", "card_exp_month must be between 01 and 12")
		e.Field = "card_exp_month"
		return e
	}

	year, err := strconv.Atoi(card.CardExpYear)
	switch {
	case err != nil:
	case len(card.CardExpYear) == 2:
		year += 2000
	case len(card.CardExpYear) == 4:
	default:
		err = fmt.Errorf("unexpected length %d", len(card.CardExpYear))
	}
	if err != nil {
		e := validationError("invalid_card_expiry", "card_exp_year must have 2 or 4 digits")
		e.Field = "card_exp_year"
		return e
	}

	// карта действует до конца месяца истечения
	expiry := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expiry) {
		e := validationError("card_expired", "card has expired")
		e.Field = "card_exp_year"
		return e
	}
	return nil
}

// validateMandate классифицирует мандат в запросе
func validateMandate(req *PaymentsRequest) (MandateType, error) {
	customerID := req.CustomerID
	if customerID == "" && req.Customer != nil {
		customerID = req.Customer.ID
	}

	switch {
	case req.MandateData != nil && req.MandateID != "":
		return MandateNone, validationError("invalid_mandate", "expected one out of mandate_id and mandate_data but got both")

	case req.MandateData != nil:
		if customerID == "" {
			return MandateNone, validationError("invalid_mandate", "customer_id is mandatory for mandates")
		}
		if req.SetupFutureUsage != "off_session" {
			return MandateNone, validationError("invalid_mandate", "`setup_future_usage` must be `off_session` for mandates")
		}
		if req.MandateData.CustomerAcceptance == nil {
			return MandateNone, validationError("invalid_mandate", "`customer_acceptance` is mandatory for mandates")
		}
		return MandateNew, nil

	case req.MandateID != "":
		if customerID == "" {
			return MandateNone, validationError("invalid_mandate", "customer_id is mandatory for recurring mandate payments")
		}
		return MandateRecurring, nil
	}
	return MandateNone, nil
}
