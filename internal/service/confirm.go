package service

import (
	"github.com/go-playground/validator/v10"
)

// PaymentConfirm операция confirm: реализует все фазы Operation
type PaymentConfirm struct {
	deps     Deps
	validate *validator.Validate
}

// NewPaymentConfirm создаёт операцию confirm
func NewPaymentConfirm(deps Deps) *PaymentConfirm {
	return &PaymentConfirm{
		deps:     deps.withDefaults(),
		validate: newValidator(),
	}
}

var _ Operation = (*PaymentConfirm)(nil)
