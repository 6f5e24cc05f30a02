package bets

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// SelectionPattern é o formato de selectionId na aposta e de resultCode na
// liquidação. Os dois precisam casar para a aposta ser liquidável.
var SelectionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]{0,63}$`)

func ValidSelection(s string) bool { return SelectionPattern.MatchString(s) }

type Status string

const (
	StatusPending   Status = "pending"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusVoid      Status = "void"
	StatusHalfWon   Status = "half_won"
	StatusHalfLost  Status = "half_lost"
	StatusCashedOut Status = "cashed_out"
)

// Terminal indica status finais; uma aposta terminal nunca volta a mudar
func (s Status) Terminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusVoid, StatusHalfWon, StatusHalfLost, StatusCashedOut:
		return true
	}
	return false
}

// Bet é o modelo persistido. Payout e SettledAt só existem após a liquidação.
type Bet struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	MarketID        string          `json:"marketId"`
	SelectionID     string          `json:"selectionId"`
	Odds            decimal.Decimal `json:"odds"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialPayout decimal.Decimal `json:"potentialPayout"`
	Status          Status          `json:"status"`
	Payout          decimal.Decimal `json:"payout"`
	ResultCode      string          `json:"resultCode,omitempty"`
	SettlementMode  string          `json:"settlementMode,omitempty"`
	PlacedAt        time.Time       `json:"placedAt"`
	SettledAt       *time.Time      `json:"settledAt,omitempty"`
}

// Transition descreve um compare-and-set pending -> status terminal
type Transition struct {
	BetID      string
	To         Status
	Payout     decimal.Decimal
	ResultCode string
	Mode       string
	Reason     string // vai para bet_transactions
	SettledAt  time.Time
}
