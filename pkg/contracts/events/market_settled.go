package events

import "time"

// Resumo publicado a cada chamada de liquidação de mercado
type MarketSettled struct {
	MarketID       string    `json:"market_id"`
	ResultCode     string    `json:"result_code,omitempty"`
	SettlementMode string    `json:"settlement_mode"`
	SettledCount   int       `json:"settled_count"`
	FailedCount    int       `json:"failed_count"`
	Trigger        string    `json:"trigger"` // admin | scheduler | cli
	Ts             time.Time `json:"ts"`
}
