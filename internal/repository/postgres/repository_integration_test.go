//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для goose миграций

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("payments"),
		postgres.WithUsername("payment_user"),
		postgres.WithPassword("payment_password"),
	)
	require.NoError(t, err)
	defer func() {
		err := postgresContainer.Terminate(ctx)
		require.NoError(t, err)
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// Ждём готовности БД через ping с retry
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	// internal/repository/postgres -> корень модуля -> migrations
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")
	moduleDir := filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(filename))))
	migrationsDir := filepath.Join(moduleDir, "migrations")

	err = goose.UpContext(ctx, db, migrationsDir)
	require.NoError(t, err, "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)

	_, err = pool.Exec(ctx,
		`INSERT INTO payment_intent (payment_id, merchant_id, status, amount, currency, active_attempt_id, client_secret)
		 VALUES ('pay_1', 'merchant_1', 'requires_confirmation', 1000, 'USD', 'pay_1_1', 'pay_1_secret')`)
	require.NoError(t, err)

	t.Run("FindPaymentIntent", func(t *testing.T) {
		got, err := repo.FindPaymentIntent(ctx, "pay_1", "merchant_1")
		require.NoError(t, err)
		require.Equal(t, repository.IntentRequiresConfirmation, got.Status)
		require.Equal(t, int64(1000), got.Amount)
		require.Equal(t, int64(1), got.Version)
	})

	t.Run("FindPaymentIntent_NotFound", func(t *testing.T) {
		_, err := repo.FindPaymentIntent(ctx, "missing", "merchant_1")
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})

	t.Run("UpdatePaymentIntent_VersionCheck", func(t *testing.T) {
		intent, err := repo.FindPaymentIntent(ctx, "pay_1", "merchant_1")
		require.NoError(t, err)

		update := repository.IntentConfirmUpdate{
			Amount:       1000,
			Currency:     "USD",
			Status:       repository.IntentProcessing,
			ReturnURL:    "https://shop.example/return",
			OrderDetails: []json.RawMessage{json.RawMessage(`{"product_name":"tea","quantity":1,"amount":1000}`)},
		}
		updated, err := repo.UpdatePaymentIntent(ctx, intent, update, "postgres_only")
		require.NoError(t, err)
		require.Equal(t, repository.IntentProcessing, updated.Status)
		require.Equal(t, intent.Version+1, updated.Version)
		require.Len(t, updated.OrderDetails, 1)

		// устаревшая версия больше не совпадает
		_, err = repo.UpdatePaymentIntent(ctx, intent, update, "postgres_only")
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})

	t.Run("Attempt_InsertFindUpdate", func(t *testing.T) {
		surcharge := int64(50)
		attempt := repository.PaymentAttempt{
			AttemptID:       "pay_1_1",
			PaymentID:       "pay_1",
			MerchantID:      "merchant_1",
			Status:          repository.AttemptConfirmationAwaited,
			Amount:          1000,
			Currency:        "USD",
			SurchargeAmount: &surcharge,
		}
		inserted, err := repo.InsertPaymentAttempt(ctx, attempt)
		require.NoError(t, err)
		require.Equal(t, int64(1), inserted.Version)

		_, err = repo.InsertPaymentAttempt(ctx, attempt)
		require.True(t, errors.Is(err, repository.ErrAlreadyExists), "Expected ErrAlreadyExists, got: %v", err)

		capturable := int64(1050)
		updated, err := repo.UpdatePaymentAttempt(ctx, inserted, repository.AttemptConfirmUpdate{
			Amount:           1000,
			Currency:         "USD",
			Status:           repository.AttemptPending,
			PaymentMethod:    "card",
			Connector:        "stripe",
			BrowserInfo:      json.RawMessage(`{"user_agent":"test"}`),
			AmountCapturable: &capturable,
		}, "postgres_only")
		require.NoError(t, err)
		require.Equal(t, repository.AttemptPending, updated.Status)
		require.Equal(t, int64(1050), updated.AmountCapturable)
		require.Equal(t, int64(50), *updated.SurchargeAmount)

		got, err := repo.FindPaymentAttempt(ctx, "pay_1", "merchant_1", "pay_1_1")
		require.NoError(t, err)
		require.Equal(t, "stripe", got.Connector)
		require.JSONEq(t, `{"user_agent":"test"}`, string(got.BrowserInfo))
	})

	t.Run("Address_InsertUpdateFind", func(t *testing.T) {
		addr := repository.Address{
			AddressID:  "addr_1",
			MerchantID: "merchant_1",
			PaymentID:  "pay_1",
			City:       "Berlin",
			Country:    "DE",
		}
		_, err := repo.InsertAddress(ctx, addr)
		require.NoError(t, err)

		addr.City = "Munich"
		_, err = repo.UpdateAddress(ctx, addr)
		require.NoError(t, err)

		got, err := repo.FindAddress(ctx, "merchant_1", "pay_1", "addr_1")
		require.NoError(t, err)
		require.Equal(t, "Munich", got.City)

		_, err = repo.FindAddress(ctx, "merchant_2", "pay_1", "addr_1")
		require.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("Customer_PartialUpdate", func(t *testing.T) {
		_, err := repo.InsertCustomer(ctx, repository.Customer{
			CustomerID: "cus_1",
			MerchantID: "merchant_1",
			Name:       "Jane",
			Email:      "jane@example.com",
		})
		require.NoError(t, err)

		email := "jane.doe@example.com"
		got, err := repo.UpdateCustomer(ctx, "cus_1", "merchant_1", repository.CustomerUpdate{Email: &email})
		require.NoError(t, err)
		require.Equal(t, "Jane", got.Name)
		require.Equal(t, email, got.Email)
	})

	t.Run("Config_InsertUpdate", func(t *testing.T) {
		_, err := repo.UpdateConfig(ctx, repository.Config{Key: "mcd_merchant_1_creds", Value: "{}"})
		require.True(t, errors.Is(err, repository.ErrNotFound))

		_, err = repo.InsertConfig(ctx, repository.Config{Key: "mcd_merchant_1_creds", Value: "{}"})
		require.NoError(t, err)

		_, err = repo.UpdateConfig(ctx, repository.Config{Key: "mcd_merchant_1_creds", Value: `{"api_key":"k"}`})
		require.NoError(t, err)

		got, err := repo.FindConfig(ctx, "mcd_merchant_1_creds")
		require.NoError(t, err)
		require.Equal(t, `{"api_key":"k"}`, got.Value)
	})
}
