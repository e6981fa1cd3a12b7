package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

func TestGetAttemptType(t *testing.T) {
	failedIntent := repository.PaymentIntent{PaymentID: testPaymentID, Status: repository.IntentFailed}

	tests := []struct {
		name          string
		intentStatus  repository.IntentStatus
		attemptStatus repository.AttemptStatus
		req           *PaymentsRequest
		want          AttemptType
		wantKind      ErrorKind
	}{
		{
			name:          "manual retry after authorization failure",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptAuthorizationFailed,
			req:           &PaymentsRequest{RetryAction: "manual_retry"},
			want:          AttemptNew,
		},
		{
			name:          "different payment method after failure",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptFailure,
			req:           &PaymentsRequest{PaymentMethod: "wallet"},
			want:          AttemptNew,
		},
		{
			name:          "different connector after authentication failure",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptAuthenticationFailed,
			req:           &PaymentsRequest{Routing: &RoutingOverride{Connector: "adyen"}},
			want:          AttemptNew,
		},
		{
			name:          "failed without retry signal",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptFailure,
			req:           &PaymentsRequest{PaymentMethod: "card"},
			wantKind:      KindInvalidState,
		},
		{
			name:          "capture failed is not retried",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptCaptureFailed,
			req:           &PaymentsRequest{RetryAction: "manual_retry"},
			wantKind:      KindInvalidState,
		},
		{
			name:          "router declined is not retried",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptRouterDeclined,
			req:           &PaymentsRequest{RetryAction: "manual_retry"},
			wantKind:      KindInvalidState,
		},
		{
			name:          "unexpected attempt status",
			intentStatus:  repository.IntentFailed,
			attemptStatus: repository.AttemptCharged,
			req:           &PaymentsRequest{RetryAction: "manual_retry"},
			wantKind:      KindInternal,
		},
		{
			name:          "partially captured payment",
			intentStatus:  repository.IntentPartiallyCaptured,
			attemptStatus: repository.AttemptPartialCharged,
			req:           &PaymentsRequest{RetryAction: "manual_retry"},
			wantKind:      KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := failedIntent
			intent.Status = tt.intentStatus
			attempt := repository.PaymentAttempt{Status: tt.attemptStatus, PaymentMethod: "card", Connector: "stripe"}

			got, err := getAttemptType(intent, attempt, tt.req, "confirm")

			if tt.wantKind != "" {
				require.Error(t, err)
				require.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPaymentConfirm_GetTrackers_RetryCreatesNewAttempt(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	_, oldAttempt := f.seedPayment(repository.IntentFailed, repository.AttemptAuthorizationFailed, func(i *repository.PaymentIntent, a *repository.PaymentAttempt) {
		a.SurchargeAmount = int64Ptr(50)
		a.TaxAmount = int64Ptr(5)
		a.CaptureMethod = "manual"
		a.Connector = "stripe"
		a.ErrorCode = "card_declined"
	})
	req := &PaymentsRequest{
		PaymentID:         testPaymentID,
		PaymentMethod:     "wallet",
		PaymentMethodData: &PaymentMethodData{Wallet: []byte(`{"paypal_redirect":{}}`)},
	}

	// Act
	pd, _, err := f.confirm().GetTrackers(ctx, testPaymentID, req, MandateNone, testMerchant(), AuthFlowMerchant)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "pay_1_2", pd.Attempt.AttemptID)
	require.Equal(t, repository.AttemptStarted, pd.Attempt.Status)
	require.Equal(t, "wallet", pd.Attempt.PaymentMethod)
	require.Equal(t, "paypal_redirect", pd.Attempt.PaymentMethodType)
	require.Equal(t, int64(1000), pd.Attempt.Amount)
	require.Equal(t, "manual", pd.Attempt.CaptureMethod)
	require.Empty(t, pd.Attempt.Connector)
	require.Empty(t, pd.Attempt.ErrorCode)
	require.Equal(t, "pay_1_2", pd.Intent.ActiveAttemptID)
	require.Equal(t, int16(2), pd.Intent.AttemptCount)

	// intent в хранилище уже указывает на новый attempt
	stored := f.intent(t)
	require.Equal(t, "pay_1_2", stored.ActiveAttemptID)
	require.Equal(t, int64(2), stored.Version)

	// предыдущий attempt не изменился
	require.Equal(t, oldAttempt, f.attempt(t, testAttemptID))
}

func TestPaymentConfirm_GetTrackers_RetryDuplicateAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPayment(repository.IntentFailed, repository.AttemptFailure, nil)
	f.repo.SaveAttempt(repository.PaymentAttempt{AttemptID: "pay_1_2", PaymentID: testPaymentID, MerchantID: testMerchantID})

	req := cardRequest()
	req.RetryAction = "manual_retry"

	_, _, err := f.confirm().GetTrackers(ctx, testPaymentID, req, MandateNone, testMerchant(), AuthFlowMerchant)

	require.ErrorIs(t, err, ErrInvalidRequestData)
	require.Equal(t, "duplicate_payment", AsError(err).Code)
}

func TestPaymentAttemptID(t *testing.T) {
	require.Equal(t, "pay_1_3", paymentAttemptID("pay_1", 3))
}
