package service

import (
	"errors"
	"fmt"
)

// ErrorKind класс ошибки API; по нему HTTP слой выбирает статус ответа
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation_error"
	KindInvalidState         ErrorKind = "invalid_state"
	KindNotFound             ErrorKind = "not_found"
	KindMissingRequiredField ErrorKind = "missing_required_field"
	KindInvalidDataValue     ErrorKind = "invalid_data_value"
	KindInvalidRequestData   ErrorKind = "invalid_request_data"
	KindInternal             ErrorKind = "internal_error"
)

// Error типизированная ошибка сервиса
// errors.Is сравнивает Kind и Code (пустой Code у цели совпадает с любым кодом этого Kind)
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrMissingRequiredField = &Error{Kind: KindMissingRequiredField}
	ErrInvalidDataValue     = &Error{Kind: KindInvalidDataValue}
	ErrInvalidRequestData   = &Error{Kind: KindInvalidRequestData}
	ErrInternal             = &Error{Kind: KindInternal}

	ErrPaymentNotFound       = &Error{Kind: KindNotFound, Code: "payment_not_found", Message: "payment does not exist in our records"}
	ErrMandateNotFound       = &Error{Kind: KindNotFound, Code: "mandate_not_found", Message: "mandate does not exist in our records"}
	ErrPaymentMethodNotFound = &Error{Kind: KindNotFound, Code: "payment_method_not_found", Message: "payment method does not exist in our records"}
	ErrPaymentLinkNotFound   = &Error{Kind: KindNotFound, Code: "payment_link_not_found", Message: "payment link does not exist in our records"}
	ErrMerchantNotFound      = &Error{Kind: KindNotFound, Code: "merchant_account_not_found", Message: "merchant account does not exist in our records"}

	ErrClientSecretInvalid = &Error{Kind: KindInvalidRequestData, Code: "client_secret_invalid", Message: "the client_secret provided does not match the client_secret associated with the payment"}
	ErrClientSecretExpired = &Error{Kind: KindInvalidRequestData, Code: "client_secret_expired", Message: "the provided client_secret has expired"}
	ErrSurchargeMismatch   = &Error{Kind: KindInvalidRequestData, Code: "surcharge_mismatch", Message: "surcharge_details sent in session token flow doesn't match with the one sent in confirm request"}
)

// wrapErr копирует sentinel и добавляет причину, сохраняя Kind и Code
func wrapErr(sentinel *Error, err error) *Error {
	e := *sentinel
	e.Err = err
	return &e
}

func validationError(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidState(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: fmt.Sprintf(format, args...)}
}

func missingField(field string) *Error {
	return &Error{Kind: KindMissingRequiredField, Code: "missing_required_field", Field: field, Message: "missing required param"}
}

func invalidDataValue(field string, err error) *Error {
	return &Error{Kind: KindInvalidDataValue, Code: "invalid_data_value", Field: field, Message: "invalid value provided", Err: err}
}

func invalidRequest(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequestData, Code: code, Message: fmt.Sprintf(format, args...)}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_server_error", Message: msg, Err: err}
}

// KindOf возвращает Kind ошибки; нетипизированные ошибки считаются внутренними
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError приводит любую ошибку к *Error
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError("something went wrong", err)
}
