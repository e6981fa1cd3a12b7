package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

// confirmNotAllowed статусы intent, в которых confirm запрещён
var confirmNotAllowed = []repository.IntentStatus{
	repository.IntentCancelled,
	repository.IntentSucceeded,
	repository.IntentProcessing,
	repository.IntentRequiresCapture,
	repository.IntentRequiresMerchantAction,
}

// GetTrackers загружает intent, attempt, адреса и мандат двумя волнами и сводит на них запрос
//
// Волна 1: intent и разрешение мандата/токена.
// Затем проверки доступа, статуса и client secret.
// Волна 2: attempt, адрес доставки, адрес оплаты, override кредов коннектора.
// В каждой волне задачи идут параллельно; первая ошибка возвращается,
// остальные задачи доработают, но их результат отбрасывается.
func (c *PaymentConfirm) GetTrackers(ctx context.Context, paymentID string, req *PaymentsRequest, mandateType MandateType, merchant repository.MerchantAccount, authFlow AuthFlow) (*PaymentData, *CustomerDetails, error) {
	logger := observability.L(ctx, c.deps.Logger).With(
		zap.String("payment_id", paymentID),
		zap.String("merchant_id", merchant.MerchantID),
	)
	store := c.deps.Store

	var (
		intent     repository.PaymentIntent
		resolution MandateResolution
		wave1      errgroup.Group
	)
	wave1.Go(func() error {
		var err error
		intent, err = store.FindPaymentIntent(ctx, paymentID, merchant.MerchantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return wrapErr(ErrPaymentNotFound, err)
			}
			return internalError("failed to find payment intent", err)
		}
		return nil
	})
	wave1.Go(func() error {
		var err error
		resolution, err = c.resolveMandateDetails(ctx, req, mandateType, merchant)
		return err
	})
	if err := wave1.Wait(); err != nil {
		logger.Debug("confirm: first wave failed", zap.Error(err))
		return nil, nil, err
	}

	if err := validateCustomerAccess(intent, authFlow, req); err != nil {
		return nil, nil, err
	}

	if err := validateStatusAllowed(intent.Status, confirmNotAllowed, "confirm"); err != nil {
		return nil, nil, err
	}

	fulfillment, err := c.fulfillmentTime(ctx, intent, merchant)
	if err != nil {
		return nil, nil, err
	}

	if err := c.authenticateClientSecret(req.ClientSecret, intent, fulfillment); err != nil {
		return nil, nil, err
	}

	customerDetails := customerDetailsFromRequest(req)
	addressCustomerID := intent.CustomerID
	if addressCustomerID == "" {
		addressCustomerID = customerDetails.ID
	}

	var (
		attempt           repository.PaymentAttempt
		shipping, billing *repository.Address
		wave2             errgroup.Group
	)
	wave2.Go(func() error {
		var err error
		attempt, err = store.FindPaymentAttempt(ctx, intent.PaymentID, merchant.MerchantID, intent.ActiveAttemptID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return wrapErr(ErrPaymentNotFound, err)
			}
			return internalError("failed to find payment attempt", err)
		}
		return nil
	})
	wave2.Go(func() error {
		var err error
		shipping, err = c.createOrFindAddress(ctx, req.Shipping, intent.ShippingAddressID, merchant.MerchantID, addressCustomerID, intent.PaymentID)
		return err
	})
	wave2.Go(func() error {
		var err error
		billing, err = c.createOrFindAddress(ctx, req.Billing, intent.BillingAddressID, merchant.MerchantID, addressCustomerID, intent.PaymentID)
		return err
	})
	wave2.Go(func() error {
		if req.MerchantConnectorDetails == nil {
			return nil
		}
		return c.insertMerchantConnectorCreds(ctx, merchant.MerchantID, *req.MerchantConnectorDetails)
	})
	if err := wave2.Wait(); err != nil {
		logger.Debug("confirm: second wave failed", zap.Error(err))
		return nil, nil, err
	}

	if !isAwaitingAction(intent.Status) {
		attemptType, err := getAttemptType(intent, attempt, req, "confirm")
		if err != nil {
			return nil, nil, err
		}
		intent, attempt, err = c.applyAttemptType(ctx, attemptType, req, intent, attempt)
		if err != nil {
			return nil, nil, err
		}
	}

	pd, err := c.reconcile(ctx, req, mandateType, merchant, intent, attempt, resolution, customerDetails, shipping, billing)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("confirm: trackers resolved",
		zap.String("attempt_id", pd.Attempt.AttemptID),
		zap.String("intent_status", string(pd.Intent.Status)),
	)
	return pd, customerDetails, nil
}

// reconcile переносит поля запроса на загруженные intent и attempt
func (c *PaymentConfirm) reconcile(
	ctx context.Context,
	req *PaymentsRequest,
	mandateType MandateType,
	merchant repository.MerchantAccount,
	intent repository.PaymentIntent,
	attempt repository.PaymentAttempt,
	resolution MandateResolution,
	customerDetails *CustomerDetails,
	shipping, billing *repository.Address,
) (*PaymentData, error) {
	if req.OrderDetails != nil {
		details, err := encodeOrderDetails(req.OrderDetails)
		if err != nil {
			return nil, internalError("failed to convert order details to value", err)
		}
		intent.OrderDetails = details
	}

	if req.SetupFutureUsage != "" {
		intent.SetupFutureUsage = req.SetupFutureUsage
	}

	if req.BrowserInfo != nil {
		raw, err := json.Marshal(req.BrowserInfo)
		if err != nil {
			return nil, invalidDataValue("browser_info", err)
		}
		attempt.BrowserInfo = raw
	}

	token := resolution.Token
	if token == "" {
		token = attempt.PaymentToken
	}

	if err := validatePmOrTokenGiven(req, mandateType, token); err != nil {
		return nil, err
	}

	if resolution.PaymentMethod != "" {
		attempt.PaymentMethod = resolution.PaymentMethod
	}
	if resolution.PaymentMethodType != "" {
		attempt.PaymentMethodType = resolution.PaymentMethodType
	}
	if attempt.PaymentMethodType == "" && req.PaymentMethodData != nil {
		attempt.PaymentMethodType = req.PaymentMethodData.PaymentMethodType()
	}
	if req.PaymentExperience != "" {
		attempt.PaymentExperience = req.PaymentExperience
	}
	if req.CaptureMethod != "" {
		attempt.CaptureMethod = req.CaptureMethod
	}
	if req.AuthenticationType != "" {
		attempt.AuthenticationType = req.AuthenticationType
	}

	if attempt.Currency == "" {
		return nil, missingField("currency")
	}

	customerID := intent.CustomerID
	if customerID == "" {
		customerID = customerDetails.ID
	}
	if req.SetupFutureUsage != "" && customerID == "" {
		return nil, invalidRequest("customer_id_required", "customer_id is mandatory when setup_future_usage is given")
	}

	var credsIdentifier string
	if req.MerchantConnectorDetails != nil {
		credsIdentifier = req.MerchantConnectorDetails.CredsIdentifier
	}

	intent.ShippingAddressID = ""
	if shipping != nil {
		intent.ShippingAddressID = shipping.AddressID
	}
	intent.BillingAddressID = ""
	if billing != nil {
		intent.BillingAddressID = billing.AddressID
	}

	returnURL, err := resolveReturnURL(req.ReturnURL, intent.ReturnURL, merchant.ReturnURL)
	if err != nil {
		return nil, err
	}
	intent.ReturnURL = returnURL

	if len(req.AllowedPaymentMethodTypes) > 0 {
		raw, err := json.Marshal(req.AllowedPaymentMethodTypes)
		if err != nil {
			return nil, internalError("error converting allowed_payment_types to value", err)
		}
		intent.AllowedPaymentMethodTypes = raw
	}
	if len(req.ConnectorMetadata) > 0 {
		intent.ConnectorMetadata = req.ConnectorMetadata
	}
	if len(req.FeatureMetadata) > 0 {
		intent.FeatureMetadata = req.FeatureMetadata
	}
	if len(req.Metadata) > 0 {
		intent.Metadata = req.Metadata
	}
	if req.Description != "" {
		intent.Description = req.Description
	}
	if req.StatementDescriptorName != "" {
		intent.StatementDescriptorName = req.StatementDescriptorName
	}
	if req.StatementDescriptorSuffix != "" {
		intent.StatementDescriptorSuffix = req.StatementDescriptorSuffix
	}
	if req.BusinessSubLabel != "" {
		attempt.BusinessSubLabel = req.BusinessSubLabel
	}

	// тип мандата из attempt дополняет mandate_data запроса
	if resolution.SetupMandate != nil && len(attempt.MandateDetails) > 0 {
		setup := *resolution.SetupMandate
		setup.MandateType = attempt.MandateDetails
		resolution.SetupMandate = &setup
	}

	if err := c.validateSurcharge(ctx, attempt, req); err != nil {
		return nil, err
	}
	surcharge := surchargeFromRequestOrAttempt(req, attempt)

	return &PaymentData{
		Flow:              FlowAuthorize,
		Intent:            intent,
		Attempt:           attempt,
		Currency:          attempt.Currency,
		Amount:            attempt.Amount,
		Email:             req.Email,
		Token:             token,
		Address:           PaymentAddress{Shipping: shipping, Billing: billing},
		Mandate:           resolution,
		Confirm:           true,
		PaymentMethodData: req.PaymentMethodData,
		CardCVC:           req.CardCVC,
		CredsIdentifier:   credsIdentifier,
		SurchargeDetails:  surcharge,
	}, nil
}

// validateCustomerAccess клиент (publishable key) не может подменить покупателя платежа
func validateCustomerAccess(intent repository.PaymentIntent, authFlow AuthFlow, req *PaymentsRequest) error {
	if authFlow != AuthFlowClient {
		return nil
	}
	if req.ClientSecret == "" {
		return missingField("client_secret")
	}
	if req.CustomerID != "" && req.CustomerID != intent.CustomerID {
		return invalidRequest("unauthorized_customer_access", "unauthorised access to update customer")
	}
	return nil
}

// validateStatusAllowed запрещает операцию в перечисленных статусах
func validateStatusAllowed(status repository.IntentStatus, notAllowed []repository.IntentStatus, action string) error {
	for _, s := range notAllowed {
		if status == s {
			return invalidState("payment_unexpected_state",
				"you cannot %s this payment because it has status %s", action, status)
		}
	}
	return nil
}

// isAwaitingAction статусы, в которых attempt переиспользуется без изменений
func isAwaitingAction(status repository.IntentStatus) bool {
	switch status {
	case repository.IntentRequiresCustomerAction,
		repository.IntentRequiresMerchantAction,
		repository.IntentRequiresPaymentMethod,
		repository.IntentRequiresConfirmation:
		return true
	}
	return false
}

// fulfillmentTime срок жизни client secret от создания intent
// Ссылка на оплату со своим сроком важнее настройки мерчанта
func (c *PaymentConfirm) fulfillmentTime(ctx context.Context, intent repository.PaymentIntent, merchant repository.MerchantAccount) (time.Duration, error) {
	if intent.PaymentLinkID != "" {
		link, err := c.deps.Store.FindPaymentLink(ctx, intent.PaymentLinkID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, wrapErr(ErrPaymentLinkNotFound, err)
			}
			return 0, internalError("failed to find payment link", err)
		}
		if link.FulfilmentTime != nil {
			return link.FulfilmentTime.Sub(link.CreatedAt), nil
		}
	}
	if merchant.IntentFulfillmentTime > 0 {
		return merchant.IntentFulfillmentTime, nil
	}
	return c.deps.IntentFulfillmentTime, nil
}

// authenticateClientSecret секрет сверяется только если передан
func (c *PaymentConfirm) authenticateClientSecret(clientSecret string, intent repository.PaymentIntent, fulfillment time.Duration) error {
	if clientSecret == "" || intent.ClientSecret == "" {
		return nil
	}
	if clientSecret != intent.ClientSecret {
		return ErrClientSecretInvalid
	}
	if c.deps.Now().After(intent.CreatedAt.Add(fulfillment)) {
		return ErrClientSecretExpired
	}
	return nil
}

// customerDetailsFromRequest объект customer важнее полей верхнего уровня
func customerDetailsFromRequest(req *PaymentsRequest) *CustomerDetails {
	d := &CustomerDetails{
		ID:               req.CustomerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
	}
	if req.Customer != nil {
		d.ID = orDefault(req.Customer.ID, d.ID)
		d.Name = orDefault(req.Customer.Name, d.Name)
		d.Email = orDefault(req.Customer.Email, d.Email)
		d.Phone = orDefault(req.Customer.Phone, d.Phone)
		d.PhoneCountryCode = orDefault(req.Customer.PhoneCountryCode, d.PhoneCountryCode)
	}
	return d
}

// validatePmOrTokenGiven нужен токен или данные способа оплаты (кроме paypal и повторного списания по мандату)
func validatePmOrTokenGiven(req *PaymentsRequest, mandateType MandateType, token string) error {
	if req.PaymentMethodType == "paypal" || mandateType == MandateRecurring || token != "" {
		return nil
	}
	if req.PaymentMethodData == nil || req.PaymentMethod == "" {
		e := *ErrPaymentMethodNotFound
		e.Message = "a payment token or payment method data is required"
		return &e
	}
	return nil
}

// resolveReturnURL запрос, затем intent, затем дефолт мерчанта
func resolveReturnURL(fromRequest, fromIntent, merchantDefault string) (string, error) {
	switch {
	case fromRequest != "":
		return fromRequest, nil
	case fromIntent != "":
		return fromIntent, nil
	case merchantDefault != "":
		return merchantDefault, nil
	}
	return "", missingField("return_url")
}

func encodeOrderDetails(details []OrderDetail) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(details))
	for _, d := range details {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
