package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// resolveMandateDetails разрешает токен, способ оплаты и мандат
// Для повторного списания способ оплаты берётся из сохранённого мандата
func (c *PaymentConfirm) resolveMandateDetails(ctx context.Context, req *PaymentsRequest, mandateType MandateType, merchant repository.MerchantAccount) (MandateResolution, error) {
	switch mandateType {
	case MandateNew:
		return MandateResolution{
			Token:             req.PaymentToken,
			PaymentMethod:     req.PaymentMethod,
			PaymentMethodType: req.PaymentMethodType,
			SetupMandate:      req.MandateData,
		}, nil

	case MandateRecurring:
		return c.recurringMandateDetails(ctx, req, merchant)
	}

	return MandateResolution{
		Token:             req.PaymentToken,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
	}, nil
}

func (c *PaymentConfirm) recurringMandateDetails(ctx context.Context, req *PaymentsRequest, merchant repository.MerchantAccount) (MandateResolution, error) {
	mandate, err := c.deps.Store.FindMandate(ctx, merchant.MerchantID, req.MandateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MandateResolution{}, wrapErr(ErrMandateNotFound, err)
		}
		return MandateResolution{}, internalError("failed to find mandate", err)
	}

	customerID := req.CustomerID
	if customerID == "" && req.Customer != nil {
		customerID = req.Customer.ID
	}
	if customerID != mandate.CustomerID {
		return MandateResolution{}, invalidRequest("mandate_customer_mismatch", "customer_id must match mandate customer_id")
	}

	if mandate.Status != repository.MandateActive {
		return MandateResolution{}, invalidState("mandate_not_active", "mandate %s is not active (status %s)", mandate.MandateID, mandate.Status)
	}

	if req.PaymentMethod != "" && mandate.PaymentMethod != "" && req.PaymentMethod != mandate.PaymentMethod {
		return MandateResolution{}, invalidRequest("payment_method_mismatch",
			"payment method in request does not match previously provided payment method information")
	}

	pmType := mandate.PaymentMethodType
	if pmType == "" {
		pmType = req.PaymentMethodType
	}

	return MandateResolution{
		Token:             req.PaymentToken,
		PaymentMethod:     orDefault(mandate.PaymentMethod, req.PaymentMethod),
		PaymentMethodType: pmType,
		RecurringMandateData: &RecurringMandateData{
			MandateID:          mandate.MandateID,
			PaymentMethodType:  pmType,
			ConnectorMandateID: mandate.ConnectorMandateID,
		},
		MandateConnector: &MandateConnector{
			Connector:           mandate.Connector,
			MerchantConnectorID: mandate.MerchantConnectorID,
		},
	}, nil
}

// merchantConnectorCredsKey ключ конфигурации с кредами коннектора на один платёж
func merchantConnectorCredsKey(merchantID, credsIdentifier string) string {
	return fmt.Sprintf("mcd_%s_%s", merchantID, credsIdentifier)
}

// insertMerchantConnectorCreds сохраняет переопределение кредов: обновляет существующую запись или создаёт новую
func (c *PaymentConfirm) insertMerchantConnectorCreds(ctx context.Context, merchantID string, mcd MerchantConnectorDetails) error {
	if len(mcd.EncodedData) == 0 {
		return nil
	}
	store := c.deps.Store
	cfg := repository.Config{
		Key:   merchantConnectorCredsKey(merchantID, mcd.CredsIdentifier),
		Value: string(mcd.EncodedData),
	}

	_, err := store.FindConfig(ctx, cfg.Key)
	switch {
	case err == nil:
		if _, err := store.UpdateConfig(ctx, cfg); err != nil {
			return internalError("failed to update merchant connector details in config", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		if _, err := store.InsertConfig(ctx, cfg); err != nil {
			return internalError("failed to insert merchant connector details in config", err)
		}
	default:
		return internalError("failed to find merchant connector details in config", err)
	}
	return nil
}
