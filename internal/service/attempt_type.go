package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// AttemptType решение о переиспользовании attempt при повторном confirm
type AttemptType int

const (
	// AttemptSameOld текущий attempt используется как есть
	AttemptSameOld AttemptType = iota
	// AttemptNew создаётся новое поколение attempt
	AttemptNew
)

// getAttemptType решает, нужен ли новый attempt для intent, не ожидающего действия
func getAttemptType(intent repository.PaymentIntent, attempt repository.PaymentAttempt, req *PaymentsRequest, action string) (AttemptType, error) {
	if intent.Status != repository.IntentFailed {
		return AttemptSameOld, invalidState("payment_unexpected_state",
			"you cannot %s this payment because it has status %s", action, intent.Status)
	}

	if req.RetryAction != "manual_retry" && !retryChangesRoute(attempt, req) {
		return AttemptSameOld, invalidState("payment_unexpected_state",
			"you cannot %s this payment because it has status %s, you can pass `retry_action` as `manual_retry` in request to try this payment again",
			action, intent.Status)
	}

	switch attempt.Status {
	case repository.AttemptAuthenticationFailed,
		repository.AttemptAuthorizationFailed,
		repository.AttemptFailure:
		return AttemptNew, nil

	case repository.AttemptVoidFailed,
		repository.AttemptRouterDeclined,
		repository.AttemptCaptureFailed:
		return AttemptSameOld, invalidState("payment_unexpected_state",
			"you cannot %s this payment because it has status %s, and the previous attempt has the status %s",
			action, intent.Status, attempt.Status)
	}

	return AttemptSameOld, internalError(fmt.Sprintf("payment attempt unexpected state %s", attempt.Status), nil)
}

// retryChangesRoute клиент сменил способ оплаты, его тип или коннектор
func retryChangesRoute(attempt repository.PaymentAttempt, req *PaymentsRequest) bool {
	if req.PaymentMethod != "" && req.PaymentMethod != attempt.PaymentMethod {
		return true
	}
	if req.PaymentMethodType != "" && req.PaymentMethodType != attempt.PaymentMethodType {
		return true
	}
	if req.Routing != nil && req.Routing.Connector != attempt.Connector {
		return true
	}
	return false
}

// applyAttemptType создаёт новый attempt и делает его активным у intent
// Предыдущий attempt не изменяется
func (c *PaymentConfirm) applyAttemptType(ctx context.Context, attemptType AttemptType, req *PaymentsRequest, intent repository.PaymentIntent, attempt repository.PaymentAttempt) (repository.PaymentIntent, repository.PaymentAttempt, error) {
	if attemptType == AttemptSameOld {
		return intent, attempt, nil
	}

	store := c.deps.Store
	newCount := intent.AttemptCount + 1

	inserted, err := store.InsertPaymentAttempt(ctx, newPaymentAttempt(req, attempt, newCount))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return intent, attempt, invalidRequest("duplicate_payment", "the payment attempt %s already exists", paymentAttemptID(intent.PaymentID, newCount))
		}
		return intent, attempt, internalError("failed to insert payment attempt", err)
	}

	updated, err := store.UpdatePaymentIntent(ctx, intent, repository.IntentActiveAttemptUpdate{
		ActiveAttemptID: inserted.AttemptID,
		AttemptCount:    newCount,
	}, intent.UpdatedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return intent, attempt, wrapErr(ErrPaymentNotFound, err)
		}
		return intent, attempt, internalError("failed to update payment intent", err)
	}

	c.deps.Logger.Info("new payment attempt created for retry",
		zap.String("payment_id", intent.PaymentID),
		zap.String("attempt_id", inserted.AttemptID),
		zap.String("previous_attempt_id", attempt.AttemptID),
	)
	return updated, inserted, nil
}

// paymentAttemptID id attempt: <payment_id>_<attempt_count>
func paymentAttemptID(paymentID string, attemptCount int16) string {
	return fmt.Sprintf("%s_%d", paymentID, attemptCount)
}

// newPaymentAttempt новое поколение attempt на основе предыдущего
func newPaymentAttempt(req *PaymentsRequest, old repository.PaymentAttempt, attemptCount int16) repository.PaymentAttempt {
	pmType := req.PaymentMethodType
	if pmType == "" && req.PaymentMethodData != nil {
		pmType = req.PaymentMethodData.PaymentMethodType()
	}
	return repository.PaymentAttempt{
		AttemptID:          paymentAttemptID(old.PaymentID, attemptCount),
		PaymentID:          old.PaymentID,
		MerchantID:         old.MerchantID,
		Status:             repository.AttemptStarted,
		Amount:             old.Amount,
		Currency:           old.Currency,
		SurchargeAmount:    old.SurchargeAmount,
		TaxAmount:          old.TaxAmount,
		PaymentMethodType:  pmType,
		CaptureMethod:      old.CaptureMethod,
		AuthenticationType: old.AuthenticationType,
		BrowserInfo:        old.BrowserInfo,
		MandateDetails:     old.MandateDetails,
		BusinessSubLabel:   old.BusinessSubLabel,
		UpdatedBy:          old.UpdatedBy,
	}
}
