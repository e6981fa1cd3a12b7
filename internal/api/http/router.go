package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/api/http/middleware"
	platformhealth "github.com/shestoi/GoBigTech/services/payment/platform/health/http"
	platformobservability "github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

// NewRouter создаёт HTTP роутер Payment Service
// readiness используется health endpoint (503, если postgres или redis недоступны)
func NewRouter(handler *Handler, readiness func() bool, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("payment", logger))
	}

	router.Route("/payments", func(r chi.Router) {
		r.Use(middleware.WithMerchantAuth)
		r.Post("/confirm", handler.PostConfirm)
		r.Post("/{payment_id}/confirm", handler.PostPaymentsConfirm)
	})

	// страница оплаты открывается покупателем без заголовков мерчанта
	router.Get("/payment_link/{merchant_id}/{payment_id}", handler.GetPaymentLink)
	router.Get("/payment_link/{payment_link_id}", handler.RetrievePaymentLink)

	router.Get("/health", platformhealth.Handler(readiness))

	return router
}
