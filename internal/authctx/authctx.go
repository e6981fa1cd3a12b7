package authctx

import (
	"context"
)

// MerchantAuth данные аутентификации мерчанта из заголовков запроса
type MerchantAuth struct {
	MerchantID     string
	PublishableKey string // непустой для вызовов из браузера (client flow)
	ClientSource   string
}

type ctxKeyMerchantAuth struct{}

var merchantAuthKey = ctxKeyMerchantAuth{}

// WithMerchantAuth сохраняет данные аутентификации в контексте (используется HTTP middleware)
func WithMerchantAuth(ctx context.Context, auth MerchantAuth) context.Context {
	return context.WithValue(ctx, merchantAuthKey, auth)
}

// MerchantAuthFromContext возвращает данные аутентификации, если они были установлены
func MerchantAuthFromContext(ctx context.Context) (MerchantAuth, bool) {
	auth, ok := ctx.Value(merchantAuthKey).(MerchantAuth)
	return auth, ok
}
