package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/internal/repository/memory"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

const (
	testMerchantID   = "merchant_1"
	testPaymentID    = "pay_1"
	testAttemptID    = "pay_1_1"
	testClientSecret = "pay_1_secret_abc"
	testReturnURL    = "https://merchant.example/return"
)

// fixture in-memory хранилище с одним мерчантом и детерминированными id
type fixture struct {
	repo *memory.MemoryRepository
	deps Deps
	ids  atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{repo: memory.NewMemoryRepository()}
	f.deps = Deps{
		Store:  f.repo,
		Router: StaticRouter{Connector: "stripe"},
		Logger: zap.NewNop(),
		Now:    func() time.Time { return testNow },
		NewID: func(prefix string) string {
			return fmt.Sprintf("%s_%d", prefix, f.ids.Add(1))
		},
	}
	f.repo.SaveMerchantAccount(testMerchant())
	return f
}

func (f *fixture) confirm() *PaymentConfirm {
	return NewPaymentConfirm(f.deps)
}

func testMerchant() repository.MerchantAccount {
	return repository.MerchantAccount{
		MerchantID:     testMerchantID,
		MerchantName:   "Acme Store",
		ReturnURL:      testReturnURL,
		PublishableKey: "pk_test_1",
		StorageScheme:  "postgres_only",
	}
}

// seedPayment сохраняет intent на 1000 USD и его активный attempt
func (f *fixture) seedPayment(status repository.IntentStatus, attemptStatus repository.AttemptStatus, mutate func(*repository.PaymentIntent, *repository.PaymentAttempt)) (repository.PaymentIntent, repository.PaymentAttempt) {
	intent := repository.PaymentIntent{
		PaymentID:       testPaymentID,
		MerchantID:      testMerchantID,
		Status:          status,
		Amount:          1000,
		Currency:        "USD",
		ClientSecret:    testClientSecret,
		ActiveAttemptID: testAttemptID,
		AttemptCount:    1,
		Version:         1,
		CreatedAt:       testNow.Add(-time.Minute),
		ModifiedAt:      testNow.Add(-time.Minute),
	}
	attempt := repository.PaymentAttempt{
		AttemptID:     testAttemptID,
		PaymentID:     testPaymentID,
		MerchantID:    testMerchantID,
		Status:        attemptStatus,
		Amount:        1000,
		Currency:      "USD",
		PaymentMethod: "card",
		Version:       1,
		CreatedAt:     testNow.Add(-time.Minute),
		ModifiedAt:    testNow.Add(-time.Minute),
	}
	if mutate != nil {
		mutate(&intent, &attempt)
	}
	f.repo.SaveIntent(intent)
	f.repo.SaveAttempt(attempt)
	return intent, attempt
}

func (f *fixture) intent(t *testing.T) repository.PaymentIntent {
	t.Helper()
	intent, err := f.repo.FindPaymentIntent(context.Background(), testPaymentID, testMerchantID)
	require.NoError(t, err)
	return intent
}

func (f *fixture) attempt(t *testing.T, attemptID string) repository.PaymentAttempt {
	t.Helper()
	attempt, err := f.repo.FindPaymentAttempt(context.Background(), testPaymentID, testMerchantID, attemptID)
	require.NoError(t, err)
	return attempt
}

func testCard() *CardData {
	return &CardData{
		CardNumber:     "4242424242424242",
		CardExpMonth:   "12",
		CardExpYear:    "2030",
		CardHolderName: "John Doe",
		CardNetwork:    "Visa",
	}
}

// cardRequest confirm картой для pay_1
func cardRequest() *PaymentsRequest {
	return &PaymentsRequest{
		PaymentID:         testPaymentID,
		PaymentMethod:     "card",
		PaymentMethodData: &PaymentMethodData{Card: testCard()},
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

// MockFraudChecker реализует FraudChecker для тестов (избегаем цикла импортов)
type MockFraudChecker struct {
	mock.Mock
}

func (m *MockFraudChecker) PreCheck(ctx context.Context, pd *PaymentData) (FraudCheckResult, error) {
	args := m.Called(ctx, pd)
	return args.Get(0).(FraudCheckResult), args.Error(1)
}

// MockSyncTaskPublisher реализует SyncTaskPublisher для тестов
type MockSyncTaskPublisher struct {
	mock.Mock
}

func (m *MockSyncTaskPublisher) PublishSyncTask(ctx context.Context, task SyncTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockConnectorRouter реализует ConnectorRouter для тестов
type MockConnectorRouter struct {
	mock.Mock
}

func (m *MockConnectorRouter) Route(ctx context.Context, merchant repository.MerchantAccount, intent repository.PaymentIntent, attempt repository.PaymentAttempt) (ConnectorChoice, error) {
	args := m.Called(ctx, merchant, intent, attempt)
	return args.Get(0).(ConnectorChoice), args.Error(1)
}
