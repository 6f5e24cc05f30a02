package dto

import "github.com/shopspring/decimal"

type DepositRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"externalRef,omitempty"` // id do pagamento no provedor
	Pending     bool            `json:"pending,omitempty"`     // aguarda confirmação do provedor
}

type WithdrawRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"externalRef,omitempty"`
}

// CompleteRequest resolve um depósito pending: completed | failed
type CompleteRequest struct {
	Status string `json:"status" validate:"required,oneof=completed failed"`
}
