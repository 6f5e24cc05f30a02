package events

// Notificação publicada no Redis quando o ledger de um usuário muda
type BalanceChanged struct {
	UserID    string `json:"user_id"`
	Balance   string `json:"balance"`
	Reason    string `json:"reason"` // tipo do lançamento que originou a mudança
	Reference string `json:"reference,omitempty"`
}
