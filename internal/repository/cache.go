package repository

import (
	"context"
	"encoding/json"
	"errors"
)

// SurchargeDetails рассчитанная надбавка за способ оплаты
type SurchargeDetails struct {
	SurchargeAmount      int64 `json:"surcharge_amount"`
	TaxOnSurchargeAmount int64 `json:"tax_on_surcharge_amount"`
	FinalAmount          int64 `json:"final_amount"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=SurchargeCache --dir=. --output=./mocks --outpkg=mocks

// SurchargeCache кэш надбавок, посчитанных в session-вызове
type SurchargeCache interface {
	// GetSurcharge возвращает ErrSurchargeNotFound, если в кэше нет записи.
	// Это отдельный исход, а не ошибка кэша
	GetSurcharge(ctx context.Context, attemptID, paymentMethod, paymentMethodType string) (SurchargeDetails, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentMethodTokenCache --dir=. --output=./mocks --outpkg=mocks

// PaymentMethodTokenCache временные токены способов оплаты
type PaymentMethodTokenCache interface {
	// GetPaymentMethodData возвращает ErrTokenNotFound, если токен истёк или не существует
	GetPaymentMethodData(ctx context.Context, token, paymentMethod string) (json.RawMessage, error)
}

var (
	// ErrSurchargeNotFound в кэше нет надбавки для attempt и способа оплаты
	ErrSurchargeNotFound = errors.New("surcharge details not found in cache")
	// ErrTokenNotFound токен способа оплаты не найден
	ErrTokenNotFound = errors.New("payment method token not found")
)
