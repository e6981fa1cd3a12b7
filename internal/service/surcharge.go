package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// validateSurcharge сверяет заявленную в confirm надбавку с зафиксированной ранее
//
// Надбавка, сохранённая в attempt при создании платежа, должна совпасть точно.
// Иначе надбавка сверяется с посчитанной в session-вызове (кэш); промах кэша
// допустим только для нулевой надбавки.
func (c *PaymentConfirm) validateSurcharge(ctx context.Context, attempt repository.PaymentAttempt, req *PaymentsRequest) error {
	declared := req.SurchargeDetails
	if declared == nil {
		return nil
	}
	if req.PaymentMethodData == nil {
		return missingField("payment_method_data")
	}

	if attempt.SurchargeAmount != nil {
		if declared.SurchargeAmount != *attempt.SurchargeAmount || !equalOptional(declared.TaxAmount, attempt.TaxAmount) {
			return ErrSurchargeMismatch
		}
		return nil
	}

	if c.deps.Surcharge == nil {
		return internalError("surcharge cache is not configured", nil)
	}

	pmType := req.PaymentMethodType
	if pmType == "" {
		pmType = req.PaymentMethodData.PaymentMethodType()
	}

	cached, err := c.deps.Surcharge.GetSurcharge(ctx, attempt.AttemptID, req.PaymentMethod, pmType)
	switch {
	case err == nil:
		if !declared.Matches(cached) {
			return ErrSurchargeMismatch
		}
		return nil
	case errors.Is(err, repository.ErrSurchargeNotFound):
		if !declared.IsZero() {
			return ErrSurchargeMismatch
		}
		return nil
	default:
		c.deps.Logger.Error("failed to fetch surcharge from cache",
			zap.Error(err),
			zap.String("attempt_id", attempt.AttemptID),
		)
		return internalError("failed to fetch redis value", err)
	}
}

// surchargeFromRequestOrAttempt итоговая надбавка: из запроса, иначе из attempt, иначе нет
func surchargeFromRequestOrAttempt(req *PaymentsRequest, attempt repository.PaymentAttempt) *repository.SurchargeDetails {
	if d := req.SurchargeDetails; d != nil {
		return &repository.SurchargeDetails{
			SurchargeAmount:      d.SurchargeAmount,
			TaxOnSurchargeAmount: d.taxOrZero(),
			FinalAmount:          attempt.Amount + d.SurchargeAmount + d.taxOrZero(),
		}
	}
	if attempt.SurchargeAmount != nil {
		tax := int64(0)
		if attempt.TaxAmount != nil {
			tax = *attempt.TaxAmount
		}
		return &repository.SurchargeDetails{
			SurchargeAmount:      *attempt.SurchargeAmount,
			TaxOnSurchargeAmount: tax,
			FinalAmount:          attempt.Amount + *attempt.SurchargeAmount + tax,
		}
	}
	return nil
}

// authorizedAmount сумма к авторизации с учётом надбавки
func authorizedAmount(pd *PaymentData) int64 {
	if pd.SurchargeDetails != nil {
		return pd.SurchargeDetails.FinalAmount
	}
	return pd.Attempt.Amount
}

func equalOptional(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
