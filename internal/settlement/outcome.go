package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/shared/money"
)

type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeVoid     Mode = "void"
	ModeHalfWin  Mode = "half_win"
	ModeHalfLost Mode = "half_lost"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeVoid, ModeHalfWin, ModeHalfLost:
		return true
	}
	return false
}

var two = decimal.NewFromInt(2)

// Outcome é o resultado puro de uma aposta: status terminal, valor pago e
// o tipo de lançamento que credita esse valor (vazio quando não há pagamento).
type Outcome struct {
	Status bets.Status
	Payout decimal.Decimal
	Credit ledger.EntryType
}

// Classify decide o resultado de uma aposta. Não acessa storage.
// Metades mantêm precisão total; só o payout final é arredondado (half-up).
func Classify(b bets.Bet, resultCode string, mode Mode, decimals int32) (Outcome, error) {
	if !b.Stake.IsPositive() {
		return Outcome{}, &ValidationError{Field: "stake", Reason: fmt.Sprintf("bet %s has non-positive stake %s", b.ID, b.Stake)}
	}
	if !b.Odds.IsPositive() {
		return Outcome{}, &ValidationError{Field: "odds", Reason: fmt.Sprintf("bet %s has non-positive odds %s", b.ID, b.Odds)}
	}

	match := b.SelectionID == resultCode
	full := b.Stake.Mul(b.Odds)

	var out Outcome
	switch mode {
	case ModeNormal:
		if match {
			out = Outcome{Status: bets.StatusWon, Payout: full, Credit: ledger.TypeWin}
		} else {
			out = Outcome{Status: bets.StatusLost}
		}

	case ModeVoid:
		out = Outcome{Status: bets.StatusVoid, Payout: b.Stake, Credit: ledger.TypeVoidRefund}

	case ModeHalfWin:
		if match {
			profit := b.Stake.Mul(b.Odds.Sub(decimal.NewFromInt(1)))
			out = Outcome{Status: bets.StatusHalfWon, Payout: b.Stake.Add(profit.Div(two)), Credit: ledger.TypeWin}
		} else {
			out = Outcome{Status: bets.StatusLost}
		}

	case ModeHalfLost:
		if match {
			out = Outcome{Status: bets.StatusWon, Payout: full, Credit: ledger.TypeWin}
		} else {
			out = Outcome{Status: bets.StatusHalfLost, Payout: b.Stake.Div(two), Credit: ledger.TypeVoidRefund}
		}

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	out.Payout = money.Round(out.Payout, decimals)
	if !out.Payout.IsPositive() {
		out.Payout = decimal.Zero
		out.Credit = ""
	}
	return out, nil
}
