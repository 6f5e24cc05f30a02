package dto

import "time"

// Result é uma resolução de mercado publicada pelo feed (formato de GET /results)
type Result struct {
	MarketID       string    `json:"marketId" validate:"required"`
	ResultCode     string    `json:"resultCode,omitempty"`
	SettlementMode string    `json:"settlementMode" validate:"required"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}

const (
	ModeNormal   = "normal"
	ModeVoid     = "void"
	ModeHalfWin  = "half_win"
	ModeHalfLost = "half_lost"
)
