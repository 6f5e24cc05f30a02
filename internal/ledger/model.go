package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType é o motivo de negócio de um lançamento na carteira
type EntryType string

const (
	TypeDeposit    EntryType = "deposit"
	TypeWithdraw   EntryType = "withdraw"
	TypeBet        EntryType = "bet"
	TypeWin        EntryType = "win"
	TypeBonus      EntryType = "bonus"
	TypeVoidRefund EntryType = "void_refund"
)

// Valid indica se o tipo é conhecido
func (t EntryType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdraw, TypeBet, TypeWin, TypeBonus, TypeVoidRefund:
		return true
	}
	return false
}

// IsCredit indica se o lançamento soma ao saldo; withdraw e bet debitam
func (t EntryType) IsCredit() bool {
	switch t {
	case TypeDeposit, TypeWin, TypeBonus, TypeVoidRefund:
		return true
	}
	return false
}

// Status de um lançamento. Só "completed" entra no saldo.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusPending || s == StatusFailed
}

// Entry é um lançamento imutável do ledger.
// Amount é sempre a magnitude positiva; o sinal vem do Type.
type Entry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      EntryType       `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	Reference string          `json:"reference,omitempty"` // betId ou id do pagamento externo
	CreatedAt time.Time       `json:"createdAt"`
}

// Signed retorna o efeito do lançamento no saldo
func (e Entry) Signed() decimal.Decimal {
	if e.Type.IsCredit() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Sum calcula o saldo derivado: soma com sinal dos lançamentos completed
func Sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Status != StatusCompleted {
			continue
		}
		total = total.Add(e.Signed())
	}
	return total
}
