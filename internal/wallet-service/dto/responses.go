package dto

import "github.com/radieske/bet-settlement-engine/internal/ledger"

type WalletResponse struct {
	UserID  string `json:"userId"`
	Balance string `json:"balance"`
}

type EntryResponse struct {
	Entry   ledger.Entry `json:"entry"`
	Balance string       `json:"balance"`
}

type TransactionsResponse struct {
	UserID  string         `json:"userId"`
	Entries []ledger.Entry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
