package bets

import "errors"

var (
	ErrNotFound          = errors.New("bet not found")
	ErrConflict          = errors.New("bet is no longer pending")
	ErrInvalidTransition = errors.New("invalid bet transition")
	ErrInvalidBet        = errors.New("invalid bet")
)
