package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Markets
	MarketSettled = "market_settled"

	// DLQs
	BetSettledDLQ = "bet_settled_dlq"

	// Canais Redis Pub/Sub
	BalanceChangedChannel = "wallet_balance_changed"
	BetSettledChannel     = "bet_settled_broadcast"
)
