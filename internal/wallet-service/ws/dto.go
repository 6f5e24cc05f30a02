package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	UserID string `json:"userId"` // requerido em subscribe/unsubscribe
}

// Push é o envelope enviado ao cliente
type Push struct {
	Type    string `json:"type"` // balance_changed | bet_settled
	UserID  string `json:"userId"`
	Payload any    `json:"payload"`
}
