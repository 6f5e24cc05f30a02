package dto

import (
	"github.com/radieske/bet-settlement-engine/internal/scheduler"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

// SettleMarketRequest é o corpo de POST /settle-market
type SettleMarketRequest struct {
	MarketID       string `json:"marketId"`
	ResultCode     string `json:"resultCode,omitempty"`
	SettlementMode string `json:"settlementMode"`
}

type SettleMarketResponse struct {
	Success bool              `json:"success"`
	Data    settlement.Result `json:"data"`
	Message string            `json:"message"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type RunCycleResponse struct {
	Success      bool                    `json:"success"`
	SettledCount int                     `json:"settledCount"`
	Markets      int                     `json:"markets"`
	Skipped      int                     `json:"skipped"`
	Errors       []scheduler.MarketError `json:"errors"`
}

type ReconcileResponse struct {
	Success bool              `json:"success"`
	Data    settlement.Report `json:"data"`
}
