package events

type BetPlaced struct {
	BetID       string `json:"bet_id"`
	UserID      string `json:"user_id"`
	MarketID    string `json:"market_id"`
	SelectionID string `json:"selection_id"`
	Stake       string `json:"stake"` // decimal em string para não perder precisão
	Odds        string `json:"odds"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
