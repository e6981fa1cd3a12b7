package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	repoMocks "github.com/shestoi/GoBigTech/services/payment/internal/repository/mocks"
)

func TestService_Confirm_EndToEnd(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		fraud           FraudCheckResult
		fraudErr        error
		wantStatus      repository.IntentStatus
		wantAttempt     repository.AttemptStatus
		wantErrorCode   string
		wantErrorReason string
	}{
		{
			name:        "no fraud signal",
			fraud:       FraudCheckResult{Suggestion: FraudNone},
			wantStatus:  repository.IntentProcessing,
			wantAttempt: repository.AttemptPending,
		},
		{
			name:        "fraud manual review",
			fraud:       FraudCheckResult{Suggestion: FraudManualReview, Status: "manual_review"},
			wantStatus:  repository.IntentRequiresMerchantAction,
			wantAttempt: repository.AttemptUnresolved,
		},
		{
			name:            "fraud cancel",
			fraud:           FraudCheckResult{Suggestion: FraudCancel, Status: "fraud", Reason: "stolen_card"},
			wantStatus:      repository.IntentFailed,
			wantAttempt:     repository.AttemptFailure,
			wantErrorCode:   "fraud",
			wantErrorReason: "stolen_card",
		},
		{
			name:        "fraud check unavailable",
			fraudErr:    errors.New("frm service timeout"),
			wantStatus:  repository.IntentProcessing,
			wantAttempt: repository.AttemptPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, nil)
			fraud := new(MockFraudChecker)
			fraud.On("PreCheck", mock.Anything, mock.MatchedBy(func(pd *PaymentData) bool {
				return pd.Intent.PaymentID == testPaymentID && pd.Attempt.Connector == "stripe"
			})).Return(tt.fraud, tt.fraudErr).Once()
			svc := NewService(f.deps, fraud)

			// Act
			resp, err := svc.Confirm(ctx, testMerchant(), cardRequest(), HeaderPayload{PaymentConfirmSource: "merchant_server"})

			// Assert
			require.NoError(t, err)
			fraud.AssertExpectations(t)

			require.Equal(t, testPaymentID, resp.PaymentID)
			require.Equal(t, tt.wantStatus, resp.Status)
			require.Equal(t, tt.wantAttempt, resp.AttemptStatus)
			require.Equal(t, testAttemptID, resp.AttemptID)
			require.Equal(t, int64(1000), resp.Amount)
			require.Equal(t, int64(1000), resp.AmountCapturable)
			require.Equal(t, "USD", resp.Currency)
			require.Equal(t, "stripe", resp.Connector)
			require.Equal(t, tt.wantErrorCode, resp.ErrorCode)
			require.Contains(t, resp.ErrorMessage, tt.wantErrorReason)
			require.Nil(t, resp.Surcharge)

			intent := f.intent(t)
			require.Equal(t, tt.wantStatus, intent.Status)
			require.Equal(t, int64(2), intent.Version)
			require.Equal(t, "merchant_server", intent.PaymentConfirmSource)
			require.Equal(t, "postgres_only", intent.UpdatedBy)
			require.Equal(t, testReturnURL, intent.ReturnURL)

			attempt := f.attempt(t, testAttemptID)
			require.Equal(t, tt.wantAttempt, attempt.Status)
			require.Equal(t, int64(1000), attempt.AmountCapturable)
			require.Equal(t, "stripe", attempt.Connector)
			require.Equal(t, "credit", attempt.PaymentMethodType)
			require.JSONEq(t, `{"card":{"last4":"4242","card_isin":"424242","card_exp_month":"12","card_exp_year":"2030","card_network":"Visa","card_holder_name":"John Doe"}}`, string(attempt.PaymentMethodData))
		})
	}
}

func TestService_Confirm_NotAllowedStatusWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPayment(repository.IntentSucceeded, repository.AttemptCharged, nil)
	fraud := new(MockFraudChecker)
	svc := NewService(f.deps, fraud)

	req := cardRequest()
	req.Billing = &AddressDetails{City: "Berlin"}
	resp, err := svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})

	require.Nil(t, resp)
	require.ErrorIs(t, err, ErrInvalidState)
	fraud.AssertNotCalled(t, "PreCheck", mock.Anything, mock.Anything)
	require.Equal(t, int64(1), f.intent(t).Version)
	require.Equal(t, int64(1), f.attempt(t, testAttemptID).Version)
	require.Empty(t, f.repo.Addresses(testMerchantID))
}

func TestService_Confirm_StoredSurcharge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		declared    int64
		wantErr     error
		wantCapture int64
	}{
		{name: "declared equals stored", declared: 50, wantCapture: 1050},
		{name: "declared differs from stored", declared: 60, wantErr: ErrInvalidRequestData},
		{name: "declared zero against stored", declared: 0, wantErr: ErrSurchargeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.deps.Surcharge = repoMocks.NewSurchargeCache(t)
			f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, func(i *repository.PaymentIntent, a *repository.PaymentAttempt) {
				a.SurchargeAmount = int64Ptr(50)
			})
			svc := NewService(f.deps, nil)
			req := cardRequest()
			req.SurchargeDetails = &RequestSurchargeDetails{SurchargeAmount: tt.declared}

			resp, err := svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, int64(1), f.intent(t).Version)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantCapture, resp.AmountCapturable)
			require.Equal(t, &repository.SurchargeDetails{SurchargeAmount: 50, FinalAmount: 1050}, resp.Surcharge)

			attempt := f.attempt(t, testAttemptID)
			require.Equal(t, int64(50), *attempt.SurchargeAmount)
			require.Equal(t, int64(0), *attempt.TaxAmount)
		})
	}
}

func TestService_Confirm_CachedSurcharge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		declared int64
		cached   *repository.SurchargeDetails
		wantErr  error
	}{
		{name: "zero surcharge without cache entry", declared: 0},
		{name: "nonzero surcharge without cache entry", declared: 25, wantErr: ErrInvalidRequestData},
		{name: "surcharge matches cache entry", declared: 25, cached: &repository.SurchargeDetails{SurchargeAmount: 25, FinalAmount: 1025}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cache := repoMocks.NewSurchargeCache(t)
			f.deps.Surcharge = cache
			f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, nil)
			if tt.cached != nil {
				cache.On("GetSurcharge", mock.Anything, testAttemptID, "card", "credit").Return(*tt.cached, nil).Once()
			} else {
				cache.On("GetSurcharge", mock.Anything, testAttemptID, "card", "credit").
					Return(repository.SurchargeDetails{}, repository.ErrSurchargeNotFound).Once()
			}
			svc := NewService(f.deps, nil)
			req := cardRequest()
			req.SurchargeDetails = &RequestSurchargeDetails{SurchargeAmount: tt.declared}

			resp, err := svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1000+tt.declared, resp.AmountCapturable)
		})
	}
}

func TestService_Confirm_RetryAfterFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	_, previous := f.seedPayment(repository.IntentFailed, repository.AttemptAuthorizationFailed, func(i *repository.PaymentIntent, a *repository.PaymentAttempt) {
		a.Connector = "stripe"
		a.ErrorCode = "card_declined"
	})
	svc := NewService(f.deps, nil)
	req := &PaymentsRequest{
		PaymentID:         testPaymentID,
		PaymentMethod:     "wallet",
		PaymentMethodData: &PaymentMethodData{Wallet: json.RawMessage(`{"paypal_redirect":{}}`)},
	}

	// Act
	resp, err := svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, "pay_1_2", resp.AttemptID)
	require.NotEqual(t, previous.AttemptID, resp.AttemptID)
	require.Equal(t, repository.IntentProcessing, resp.Status)
	require.Equal(t, repository.AttemptPending, resp.AttemptStatus)

	intent := f.intent(t)
	require.Equal(t, "pay_1_2", intent.ActiveAttemptID)
	require.Equal(t, int16(2), intent.AttemptCount)

	// предыдущий attempt доступен и не изменён
	require.Equal(t, previous, f.attempt(t, testAttemptID))

	current := f.attempt(t, "pay_1_2")
	require.Equal(t, "wallet", current.PaymentMethod)
	require.JSONEq(t, `{"wallet":{}}`, string(current.PaymentMethodData))
}

func TestService_Confirm_CustomerUpdatePersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.repo.InsertCustomer(ctx, repository.Customer{CustomerID: "cus_1", MerchantID: testMerchantID, Email: "old@example.com"})
	require.NoError(t, err)
	f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, func(i *repository.PaymentIntent, a *repository.PaymentAttempt) {
		i.CustomerID = "cus_1"
	})
	svc := NewService(f.deps, nil)

	req := cardRequest()
	req.Email = "new@example.com"
	_, err = svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})
	require.NoError(t, err)

	customer, err := f.repo.FindCustomer(ctx, "cus_1", testMerchantID)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", customer.Email)
	require.Equal(t, "cus_1", f.intent(t).CustomerID)
}

func TestService_Confirm_Requeue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, nil)
	publisher := new(MockSyncTaskPublisher)
	f.deps.Tasks = publisher
	publisher.On("PublishSyncTask", mock.Anything, SyncTask{
		PaymentID:  testPaymentID,
		MerchantID: testMerchantID,
		AttemptID:  testAttemptID,
		Connector:  "stripe",
		Requeue:    true,
	}).Return(nil).Once()
	svc := NewService(f.deps, nil)

	req := cardRequest()
	req.RetryAction = "requeue"
	_, err := svc.Confirm(ctx, testMerchant(), req, HeaderPayload{})

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestService_Confirm_ConcurrentCallsRaceOnVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPayment(repository.IntentRequiresConfirmation, repository.AttemptConfirmationAwaited, nil)
	svc := NewService(f.deps, nil)

	const calls = 2
	var (
		wg   sync.WaitGroup
		errs = make([]error, calls)
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(ctx, testMerchant(), cardRequest(), HeaderPayload{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// проигравший вызов видит либо изменённую строку, либо уже processing
		require.True(t, errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrInvalidState), "unexpected error: %v", err)
	}
	require.LessOrEqual(t, succeeded, 1)

	// intent обновлён ровно один раз
	require.Equal(t, int64(2), f.intent(t).Version)
}

func TestService_Merchant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(f.deps, nil)

	merchant, err := svc.Merchant(ctx, testMerchantID)
	require.NoError(t, err)
	require.Equal(t, "Acme Store", merchant.MerchantName)

	_, err = svc.Merchant(ctx, "merchant_missing")
	require.ErrorIs(t, err, ErrMerchantNotFound)
}
