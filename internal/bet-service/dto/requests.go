package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	UserID      string          `json:"userId" validate:"required,max=64"`
	MarketID    string          `json:"marketId" validate:"required,max=64"`
	SelectionID string          `json:"selectionId" validate:"required,selection"`
	Stake       decimal.Decimal `json:"stake"`
	Odds        decimal.Decimal `json:"odds"` // odd que o cliente viu
}
