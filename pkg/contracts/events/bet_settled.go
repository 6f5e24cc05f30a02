package events

import "time"

// Evento emitido pelo settlement-service após a liquidação de cada aposta.
type BetSettled struct {
	BetID          string    `json:"bet_id"`
	UserID         string    `json:"user_id"`
	MarketID       string    `json:"market_id"`
	SelectionID    string    `json:"selection_id"`
	Status         string    `json:"status"` // won | lost | void | half_won | half_lost
	Payout         string    `json:"payout"`
	ResultCode     string    `json:"result_code,omitempty"`
	SettlementMode string    `json:"settlement_mode"`
	SettledAt      time.Time `json:"settled_at"`
}
