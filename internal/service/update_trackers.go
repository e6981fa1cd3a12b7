package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

// UpdateTrackers вычисляет следующие статусы и сохраняет intent, attempt и покупателя
//
// Три записи пишутся параллельно и независимо: общей транзакции нет.
// Условное обновление по version, не совпавшее с хранилищем, отдаёт ErrPaymentNotFound.
func (c *PaymentConfirm) UpdateTrackers(ctx context.Context, pd *PaymentData, customer *repository.Customer, customerUpdate *repository.CustomerUpdate, merchant repository.MerchantAccount, fraud *FraudCheckResult, header HeaderPayload) (*PaymentData, error) {
	logger := observability.L(ctx, c.deps.Logger)
	store := c.deps.Store

	next := nextStatuses(fraud)

	additionalPmData, err := additionalPaymentMethodData(pd.PaymentMethodData)
	if err != nil {
		return nil, internalError("failed to encode additional pm data", err)
	}

	var straightThrough json.RawMessage
	if len(pd.Attempt.StraightThroughAlgorithm) > 0 {
		straightThrough = pd.Attempt.StraightThroughAlgorithm
	}

	capturable := authorizedAmount(pd)

	var surchargeAmount, taxAmount *int64
	if s := pd.SurchargeDetails; s != nil {
		sa, ta := s.SurchargeAmount, s.TaxOnSurchargeAmount
		surchargeAmount, taxAmount = &sa, &ta
	}

	attemptUpdate := repository.AttemptConfirmUpdate{
		Amount:                   pd.Amount,
		Currency:                 pd.Currency,
		Status:                   next.Attempt,
		PaymentMethod:            pd.Attempt.PaymentMethod,
		PaymentMethodType:        pd.Attempt.PaymentMethodType,
		PaymentExperience:        pd.Attempt.PaymentExperience,
		AuthenticationType:       pd.Attempt.AuthenticationType,
		BrowserInfo:              pd.Attempt.BrowserInfo,
		Connector:                pd.Attempt.Connector,
		MerchantConnectorID:      pd.Attempt.MerchantConnectorID,
		PaymentToken:             pd.Token,
		PaymentMethodData:        additionalPmData,
		BusinessSubLabel:         pd.Attempt.BusinessSubLabel,
		StraightThroughAlgorithm: straightThrough,
		ErrorCode:                next.ErrorCode,
		ErrorMessage:             next.ErrorMessage,
		AmountCapturable:         &capturable,
		SurchargeAmount:          surchargeAmount,
		TaxAmount:                taxAmount,
	}

	intentUpdate := repository.IntentConfirmUpdate{
		Amount:                    pd.Amount,
		Currency:                  pd.Currency,
		SetupFutureUsage:          pd.Intent.SetupFutureUsage,
		Status:                    next.Intent,
		CustomerID:                pd.Intent.CustomerID,
		ShippingAddressID:         pd.Intent.ShippingAddressID,
		BillingAddressID:          pd.Intent.BillingAddressID,
		ReturnURL:                 pd.Intent.ReturnURL,
		BusinessCountry:           pd.Intent.BusinessCountry,
		BusinessLabel:             pd.Intent.BusinessLabel,
		Description:               pd.Intent.Description,
		StatementDescriptorName:   pd.Intent.StatementDescriptorName,
		StatementDescriptorSuffix: pd.Intent.StatementDescriptorSuffix,
		OrderDetails:              pd.Intent.OrderDetails,
		Metadata:                  pd.Intent.Metadata,
		PaymentConfirmSource:      header.PaymentConfirmSource,
	}

	updatedBy := merchant.StorageScheme

	var (
		attempt repository.PaymentAttempt
		intent  repository.PaymentIntent
		g       errgroup.Group
	)
	g.Go(func() error {
		var err error
		attempt, err = store.UpdatePaymentAttempt(ctx, pd.Attempt, attemptUpdate, updatedBy)
		if err != nil {
			return persistError("failed to update payment attempt", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		intent, err = store.UpdatePaymentIntent(ctx, pd.Intent, intentUpdate, updatedBy)
		if err != nil {
			return persistError("failed to update payment intent", err)
		}
		return nil
	})
	g.Go(func() error {
		if customer == nil || customerUpdate == nil || customerUpdate.IsEmpty() {
			return nil
		}
		if _, err := store.UpdateCustomer(ctx, customer.CustomerID, customer.MerchantID, *customerUpdate); err != nil {
			return internalError("failed to update customer", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("confirm: persistence failed",
			zap.String("payment_id", pd.Intent.PaymentID),
			zap.String("attempt_id", pd.Attempt.AttemptID),
			zap.Error(err),
		)
		return nil, err
	}

	pd.Intent = intent
	pd.Attempt = attempt
	pd.FraudMessage = fraud

	logger.Info("confirm: trackers updated",
		zap.String("payment_id", intent.PaymentID),
		zap.String("attempt_id", attempt.AttemptID),
		zap.String("intent_status", string(intent.Status)),
		zap.String("attempt_status", string(attempt.Status)),
	)
	return pd, nil
}

func persistError(msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrapErr(ErrPaymentNotFound, err)
	}
	return internalError(msg, err)
}

// additionalCardInfo карточные данные без чувствительных полей
type additionalCardInfo struct {
	Last4          string `json:"last4"`
	CardIsin       string `json:"card_isin"`
	CardExpMonth   string `json:"card_exp_month"`
	CardExpYear    string `json:"card_exp_year"`
	CardNetwork    string `json:"card_network,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	CardType       string `json:"card_type,omitempty"`
	CardIssuer     string `json:"card_issuer,omitempty"`
}

// additionalPaymentMethodData данные способа оплаты, которые можно хранить в attempt
// Для карты остаются последние 4 цифры, BIN, срок, сеть и держатель; для остальных только вид
func additionalPaymentMethodData(data *PaymentMethodData) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if card := data.Card; card != nil {
		number := card.CardNumber
		info := additionalCardInfo{
			CardExpMonth:   card.CardExpMonth,
			CardExpYear:    card.CardExpYear,
			CardNetwork:    card.CardNetwork,
			CardHolderName: card.CardHolderName,
			CardType:       card.CardType,
			CardIssuer:     card.CardIssuer,
		}
		if len(number) >= 4 {
			info.Last4 = number[len(number)-4:]
		}
		if len(number) >= 6 {
			info.CardIsin = number[:6]
		}
		return json.Marshal(map[string]additionalCardInfo{"card": info})
	}
	kind := data.Kind()
	if kind == "" {
		return nil, nil
	}
	return json.Marshal(map[string]struct{}{kind: {}})
}
