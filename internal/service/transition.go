package service

import (
	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// statusTransition следующий статус intent и attempt после confirm
type statusTransition struct {
	Intent       repository.IntentStatus
	Attempt      repository.AttemptStatus
	ErrorCode    *string
	ErrorMessage *string
}

// nextStatuses таблица переходов confirm по рекомендации фрод-проверки
//
//	нет сигнала         -> processing / pending
//	отмена по фроду     -> failed / failure (код и причина из проверки)
//	ручная проверка     -> requires_merchant_action / unresolved
func nextStatuses(fraud *FraudCheckResult) statusTransition {
	if fraud == nil {
		return statusTransition{Intent: repository.IntentProcessing, Attempt: repository.AttemptPending}
	}

	switch fraud.Suggestion {
	case FraudCancel:
		code, msg := fraud.Status, fraud.Reason
		return statusTransition{
			Intent:       repository.IntentFailed,
			Attempt:      repository.AttemptFailure,
			ErrorCode:    &code,
			ErrorMessage: &msg,
		}
	case FraudManualReview:
		return statusTransition{Intent: repository.IntentRequiresMerchantAction, Attempt: repository.AttemptUnresolved}
	}

	return statusTransition{Intent: repository.IntentProcessing, Attempt: repository.AttemptPending}
}
