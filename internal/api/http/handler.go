package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/authctx"
	"github.com/shestoi/GoBigTech/services/payment/internal/service"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

// Handler содержит HTTP-обработчики Payment Service
type Handler struct {
	paymentService *service.Service
	logger         *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(paymentService *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// PostPaymentsConfirm обрабатывает POST /payments/{payment_id}/confirm
func (h *Handler) PostPaymentsConfirm(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, chi.URLParam(r, "payment_id"))
}

// PostConfirm обрабатывает POST /payments/confirm (payment_id в теле или генерируется)
func (h *Handler) PostConfirm(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, "")
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, pathPaymentID string) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	auth, ok := authctx.MerchantAuthFromContext(ctx)
	if !ok {
		writeServiceError(w, logger, service.ErrInternal)
		return
	}

	var req service.PaymentsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.Debug("confirm: invalid json", zap.Error(err))
		writeBadRequest(w, logger, "invalid_json", "request body is not valid json: "+err.Error())
		return
	}

	if pathPaymentID != "" {
		if req.PaymentID != "" && req.PaymentID != pathPaymentID {
			writeBadRequest(w, logger, "payment_id_mismatch", "payment_id in body does not match payment_id in path")
			return
		}
		req.PaymentID = pathPaymentID
	}

	merchant, err := h.paymentService.Merchant(ctx, auth.MerchantID)
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}

	header := service.HeaderPayload{
		PaymentConfirmSource: auth.ClientSource,
		AuthFlow:             service.AuthFlowMerchant,
	}
	if auth.PublishableKey != "" {
		if auth.PublishableKey != merchant.PublishableKey {
			writeJSON(w, logger, http.StatusUnauthorized, ErrorBody{Error: ErrorDetails{
				Type:    "unauthorized",
				Code:    "invalid_publishable_key",
				Message: "publishable key does not belong to merchant",
			}})
			return
		}
		header.AuthFlow = service.AuthFlowClient
	}

	resp, err := h.paymentService.Confirm(ctx, merchant, &req, header)
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, resp)
}

// GetPaymentLink обрабатывает GET /payment_link/{merchant_id}/{payment_id}
func (h *Handler) GetPaymentLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	merchant, err := h.paymentService.Merchant(ctx, chi.URLParam(r, "merchant_id"))
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}

	details, err := h.paymentService.PaymentLinkDetails(ctx, merchant, chi.URLParam(r, "payment_id"))
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, details)
}

// RetrievePaymentLink обрабатывает GET /payment_link/{payment_link_id}
func (h *Handler) RetrievePaymentLink(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	link, err := h.paymentService.RetrievePaymentLink(r.Context(), chi.URLParam(r, "payment_link_id"))
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, link)
}

// requestLogger logger с trace_id, если его положил observability middleware
func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	if l := observability.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger
}
