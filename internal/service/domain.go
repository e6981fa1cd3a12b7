package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

// GetOrCreateCustomerDetails находит покупателя платежа или создаёт нового
//
// Найденный покупатель не перезаписывается сразу: отличия от запроса возвращаются
// как CustomerUpdate и сохраняются вместе с intent и attempt.
func (c *PaymentConfirm) GetOrCreateCustomerDetails(ctx context.Context, pd *PaymentData, details *CustomerDetails, merchantID string) (*repository.Customer, *repository.CustomerUpdate, error) {
	customerID := pd.Intent.CustomerID
	if customerID == "" && details != nil {
		customerID = details.ID
	}
	if customerID == "" {
		return nil, nil, nil
	}
	if details == nil {
		details = &CustomerDetails{}
	}

	store := c.deps.Store
	existing, err := store.FindCustomer(ctx, customerID, merchantID)
	switch {
	case err == nil:
		pd.Intent.CustomerID = customerID
		update := customerDiff(existing, details)
		if update.IsEmpty() {
			return &existing, nil, nil
		}
		return &existing, &update, nil

	case errors.Is(err, repository.ErrNotFound):
		now := c.deps.Now()
		inserted, err := store.InsertCustomer(ctx, repository.Customer{
			CustomerID:       customerID,
			MerchantID:       merchantID,
			Name:             details.Name,
			Email:            details.Email,
			Phone:            details.Phone,
			PhoneCountryCode: details.PhoneCountryCode,
			CreatedAt:        now,
			ModifiedAt:       now,
		})
		if err != nil {
			return nil, nil, internalError("failed to insert customer", err)
		}
		pd.Intent.CustomerID = customerID
		observability.L(ctx, c.deps.Logger).Info("customer created on confirm",
			zap.String("customer_id", customerID),
			zap.String("merchant_id", merchantID),
		)
		return &inserted, nil, nil
	}

	return nil, nil, internalError("failed to find customer", err)
}

// customerDiff поля запроса, отличающиеся от сохранённого покупателя
func customerDiff(existing repository.Customer, details *CustomerDetails) repository.CustomerUpdate {
	var u repository.CustomerUpdate
	if details.Name != "" && details.Name != existing.Name {
		u.Name = &details.Name
	}
	if details.Email != "" && details.Email != existing.Email {
		u.Email = &details.Email
	}
	if details.Phone != "" && details.Phone != existing.Phone {
		u.Phone = &details.Phone
	}
	if details.PhoneCountryCode != "" && details.PhoneCountryCode != existing.PhoneCountryCode {
		u.PhoneCountryCode = &details.PhoneCountryCode
	}
	return u
}

// MakePmData разрешает данные способа оплаты:
// данные из запроса, затем временный токен из кэша, затем мандат
func (c *PaymentConfirm) MakePmData(ctx context.Context, pd *PaymentData) (*PaymentMethodData, error) {
	if pd.PaymentMethodData != nil {
		applyCardCVC(pd.PaymentMethodData, pd.CardCVC)
		return pd.PaymentMethodData, nil
	}

	if pd.Token != "" && c.deps.Tokens != nil {
		raw, err := c.deps.Tokens.GetPaymentMethodData(ctx, pd.Token, pd.Attempt.PaymentMethod)
		switch {
		case err == nil:
			var data PaymentMethodData
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, internalError("failed to decode payment method data from token", err)
			}
			applyCardCVC(&data, pd.CardCVC)
			pd.PaymentMethodData = &data
			return &data, nil
		case errors.Is(err, repository.ErrTokenNotFound):
			return nil, wrapErr(ErrPaymentMethodNotFound, err)
		default:
			return nil, internalError("failed to fetch payment method token", err)
		}
	}

	// при повторном списании способ оплаты хранится у коннектора
	if pd.Mandate.RecurringMandateData != nil {
		return nil, nil
	}
	if pd.Attempt.PaymentMethodType == "paypal" {
		return nil, nil
	}

	return nil, ErrPaymentMethodNotFound
}

func applyCardCVC(data *PaymentMethodData, cvc string) {
	if data.Card != nil && data.Card.CardCVC == "" && cvc != "" {
		data.Card.CardCVC = cvc
	}
}

// GetConnector выбирает коннектор:
// routing из запроса, затем коннектор attempt, затем коннектор мандата, затем роутер
func (c *PaymentConfirm) GetConnector(ctx context.Context, merchant repository.MerchantAccount, req *PaymentsRequest, pd *PaymentData) (ConnectorChoice, error) {
	var choice ConnectorChoice

	switch {
	case req.Routing != nil:
		raw, err := json.Marshal(req.Routing)
		if err != nil {
			return ConnectorChoice{}, internalError("failed to encode straight through algorithm", err)
		}
		pd.Attempt.StraightThroughAlgorithm = raw
		choice = ConnectorChoice{
			Connector:           req.Routing.Connector,
			MerchantConnectorID: req.Routing.MerchantConnectorID,
			StraightThrough:     true,
		}

	case pd.Attempt.Connector != "":
		choice = ConnectorChoice{
			Connector:           pd.Attempt.Connector,
			MerchantConnectorID: pd.Attempt.MerchantConnectorID,
		}

	case pd.Mandate.MandateConnector != nil && pd.Mandate.MandateConnector.Connector != "":
		choice = ConnectorChoice{
			Connector:           pd.Mandate.MandateConnector.Connector,
			MerchantConnectorID: pd.Mandate.MandateConnector.MerchantConnectorID,
		}

	default:
		routed, err := c.deps.Router.Route(ctx, merchant, pd.Intent, pd.Attempt)
		if err != nil {
			var typed *Error
			if errors.As(err, &typed) {
				return ConnectorChoice{}, err
			}
			return ConnectorChoice{}, internalError("failed to route payment", err)
		}
		choice = routed
	}

	pd.Attempt.Connector = choice.Connector
	pd.Attempt.MerchantConnectorID = choice.MerchantConnectorID
	return choice, nil
}

// AddTaskToProcessTracker ставит задачу синхронизации статуса, если клиент попросил requeue
func (c *PaymentConfirm) AddTaskToProcessTracker(ctx context.Context, attempt repository.PaymentAttempt, requeue bool) error {
	if !requeue || c.deps.Tasks == nil {
		return nil
	}

	task := SyncTask{
		PaymentID:  attempt.PaymentID,
		MerchantID: attempt.MerchantID,
		AttemptID:  attempt.AttemptID,
		Connector:  attempt.Connector,
		Requeue:    requeue,
	}
	if err := c.deps.Tasks.PublishSyncTask(ctx, task); err != nil {
		observability.L(ctx, c.deps.Logger).Error("failed to add sync task to process tracker",
			zap.String("payment_id", attempt.PaymentID),
			zap.String("attempt_id", attempt.AttemptID),
			zap.Error(err),
		)
		return internalError("failed while inserting task in process_tracker", err)
	}
	return nil
}
