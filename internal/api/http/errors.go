package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/service"
)

// ErrorBody тело ответа с ошибкой
type ErrorBody struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails описание ошибки для клиента
type ErrorDetails struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor выбирает HTTP статус по классу ошибки сервиса
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidState:
		return http.StatusUnprocessableEntity
	case service.KindValidation,
		service.KindMissingRequiredField,
		service.KindInvalidDataValue,
		service.KindInvalidRequestData:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError отдаёт ошибку сервиса; детали внутренних ошибок наружу не уходят
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	e := service.AsError(err)
	status := statusFor(e.Kind)

	details := ErrorDetails{
		Type:    string(e.Kind),
		Code:    e.Code,
		Message: e.Message,
		Field:   e.Field,
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		details = ErrorDetails{
			Type:    string(service.KindInternal),
			Code:    "internal_server_error",
			Message: "something went wrong",
		}
	}
	writeJSON(w, logger, status, ErrorBody{Error: details})
}

func writeBadRequest(w http.ResponseWriter, logger *zap.Logger, code, message string) {
	writeJSON(w, logger, http.StatusBadRequest, ErrorBody{Error: ErrorDetails{
		Type:    string(service.KindInvalidRequestData),
		Code:    code,
		Message: message,
	}})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
