package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPaymentConfirm_ValidateRequest(t *testing.T) {
	f := newFixture(t)
	op := f.confirm()
	merchant := testMerchant()

	tests := []struct {
		name        string
		mutate      func(req *PaymentsRequest)
		wantKind    ErrorKind
		wantCode    string
		wantField   string
		wantMandate MandateType
		wantRequeue bool
	}{
		{
			name:   "success: card request",
			mutate: func(req *PaymentsRequest) {},
		},
		{
			name: "success: requeue flag",
			mutate: func(req *PaymentsRequest) {
				req.RetryAction = "requeue"
			},
			wantRequeue: true,
		},
		{
			name: "conflicting customer id",
			mutate: func(req *PaymentsRequest) {
				req.CustomerID = "cus_1"
				req.Customer = &CustomerDetails{ID: "cus_2"}
			},
			wantKind:  KindValidation,
			wantCode:  "conflicting_customer_fields",
			wantField: "customer_id",
		},
		{
			name: "conflicting customer email",
			mutate: func(req *PaymentsRequest) {
				req.Email = "a@example.com"
				req.Customer = &CustomerDetails{Email: "b@example.com"}
			},
			wantKind:  KindValidation,
			wantCode:  "conflicting_customer_fields",
			wantField: "email",
		},
		{
			name: "malformed payment id",
			mutate: func(req *PaymentsRequest) {
				req.PaymentID = "pay 1; drop"
			},
			wantKind: KindValidation,
			wantCode: "malformed_identifier",
		},
		{
			name: "merchant id mismatch",
			mutate: func(req *PaymentsRequest) {
				req.MerchantID = "merchant_other"
			},
			wantKind: KindValidation,
			wantCode: "merchant_id_mismatch",
		},
		{
			name: "payment method data without payment method",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethod = ""
			},
			wantKind:  KindMissingRequiredField,
			wantField: "payment_method",
		},
		{
			name: "payment method type without payment method",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData = nil
				req.PaymentMethod = ""
				req.PaymentMethodType = "credit"
			},
			wantKind:  KindMissingRequiredField,
			wantField: "payment_method",
		},
		{
			name: "payment method data kind mismatch",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethod = "wallet"
			},
			wantKind: KindValidation,
			wantCode: "payment_method_mismatch",
		},
		{
			name: "two payment method variants",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData.Wallet = json.RawMessage(`{"paypal_redirect":{}}`)
			},
			wantKind: KindValidation,
			wantCode: "invalid_payment_method_data",
		},
		{
			name: "card number fails luhn",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData.Card.CardNumber = "4242424242424241"
			},
			wantKind:  KindValidation,
			wantCode:  "invalid_field",
			wantField: "card_number",
		},
		{
			name: "card expiry month out of range",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData.Card.CardExpMonth = "13"
			},
			wantKind:  KindValidation,
			wantCode:  "invalid_card_expiry",
			wantField: "card_exp_month",
		},
		{
			name: "expired card",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData.Card.CardExpMonth = "09"
				req.PaymentMethodData.Card.CardExpYear = "26"
			},
			wantKind: KindValidation,
			wantCode: "card_expired",
		},
		{
			name: "success: card expiring this month",
			mutate: func(req *PaymentsRequest) {
				req.PaymentMethodData.Card.CardExpMonth = "10"
				req.PaymentMethodData.Card.CardExpYear = "2026"
			},
		},
		{
			name: "invalid cvc",
			mutate: func(req *PaymentsRequest) {
				req.CardCVC = "12a"
			},
			wantKind:  KindValidation,
			wantField: "card_cvc",
		},
		{
			name: "mandate data and mandate id together",
			mutate: func(req *PaymentsRequest) {
				req.CustomerID = "cus_1"
				req.MandateID = "man_1"
				req.MandateData = &MandateData{CustomerAcceptance: &CustomerAcceptance{AcceptanceType: "online"}}
			},
			wantKind: KindValidation,
			wantCode: "invalid_mandate",
		},
		{
			name: "new mandate requires off_session",
			mutate: func(req *PaymentsRequest) {
				req.CustomerID = "cus_1"
				req.MandateData = &MandateData{CustomerAcceptance: &CustomerAcceptance{AcceptanceType: "online"}}
			},
			wantKind: KindValidation,
			wantCode: "invalid_mandate",
		},
		{
			name: "success: new mandate",
			mutate: func(req *PaymentsRequest) {
				req.CustomerID = "cus_1"
				req.SetupFutureUsage = "off_session"
				req.MandateData = &MandateData{CustomerAcceptance: &CustomerAcceptance{AcceptanceType: "online"}}
			},
			wantMandate: MandateNew,
		},
		{
			name: "recurring mandate requires customer",
			mutate: func(req *PaymentsRequest) {
				req.MandateID = "man_1"
			},
			wantKind: KindValidation,
			wantCode: "invalid_mandate",
		},
		{
			name: "success: recurring mandate",
			mutate: func(req *PaymentsRequest) {
				req.Customer = &CustomerDetails{ID: "cus_1"}
				req.MandateID = "man_1"
			},
			wantMandate: MandateRecurring,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := cardRequest()
			tt.mutate(req)

			// Act
			res, err := op.ValidateRequest(req, merchant)

			// Assert
			if tt.wantKind != "" {
				require.Error(t, err)
				var e *Error
				require.True(t, errors.As(err, &e), "expected *Error, got %T", err)
				require.Equal(t, tt.wantKind, e.Kind)
				if tt.wantCode != "" {
					require.Equal(t, tt.wantCode, e.Code)
				}
				if tt.wantField != "" {
					require.Equal(t, tt.wantField, e.Field)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, testMerchantID, res.MerchantID)
			require.Equal(t, testPaymentID, res.PaymentID)
			require.Equal(t, tt.wantMandate, res.MandateType)
			require.Equal(t, tt.wantRequeue, res.Requeue)
			require.Equal(t, "postgres_only", res.StorageScheme)
		})
	}
}

func TestPaymentConfirm_ValidateRequest_GeneratesPaymentID(t *testing.T) {
	f := newFixture(t)
	op := f.confirm()

	req := cardRequest()
	req.PaymentID = ""

	res, err := op.ValidateRequest(req, testMerchant())
	require.NoError(t, err)
	require.Equal(t, "pay_1", res.PaymentID)
}

func TestGenerateID(t *testing.T) {
	a := generateID("pay")
	b := generateID("pay")

	require.Regexp(t, `^pay_[0-9a-v]{20}$`, a)
	require.NotEqual(t, a, b)
	require.True(t, paymentIDPattern.MatchString(a))
}

func TestValidateCardExpiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		month   string
		year    string
		wantErr bool
	}{
		{name: "four digit year in future", month: "01", year: "2027"},
		{name: "two digit year in future", month: "01", year: "27"},
		{name: "current month", month: "10", year: "2026"},
		{name: "previous month", month: "09", year: "2026", wantErr: true},
		{name: "three digit year", month: "01", year: "202", wantErr: true},
		{name: "month zero", month: "00", year: "2027", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCardExpiry(&CardData{CardExpMonth: tt.month, CardExpYear: tt.year}, now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}
