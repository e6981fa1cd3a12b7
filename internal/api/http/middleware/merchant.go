package middleware

import (
	"net/http"

	"github.com/shestoi/GoBigTech/services/payment/internal/authctx"
)

const (
	MerchantIDHeader     = "x-merchant-id"
	PublishableKeyHeader = "x-publishable-key"
	ClientSourceHeader   = "x-client-source"
)

// WithMerchantAuth читает заголовки мерчанта; без x-merchant-id возвращает 401
//
// API ключ здесь не проверяется: x-merchant-id выставляет вышестоящий слой
// аутентификации (gateway), и этот middleware ему доверяет.
func WithMerchantAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchantID := r.Header.Get(MerchantIDHeader)
		if merchantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"type":"unauthorized","code":"api_key_not_provided","message":"merchant id is required"}}`))
			return
		}
		ctx := authctx.WithMerchantAuth(r.Context(), authctx.MerchantAuth{
			MerchantID:     merchantID,
			PublishableKey: r.Header.Get(PublishableKeyHeader),
			ClientSource:   r.Header.Get(ClientSourceHeader),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
