package dto

import "github.com/radieske/bet-settlement-engine/internal/bets"

type PlaceBetResponse struct {
	BetID           string `json:"betId"`
	Status          string `json:"status"` // pending
	PotentialPayout string `json:"potentialPayout"`
	Message         string `json:"message,omitempty"`
}

type BetResponse struct {
	Bet bets.Bet `json:"bet"`
}

type ErrorResponse struct {
	Error       string `json:"error"`
	CurrentOdds string `json:"currentOdds,omitempty"`
}
