package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// StartRedisSubscriber escuta os canais de saldo e de liquidação e repassa
// cada mensagem para as conexões WebSocket do usuário. onBalance (opcional)
// recebe o userId de cada mudança de saldo feita por outro processo, para
// invalidar o cache local.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub, log *zap.Logger, balanceChannel, settledChannel string, onBalance func(userID string)) {
	sub := r.Subscribe(ctx, balanceChannel, settledChannel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p, ok := decode(msg.Channel, msg.Payload, balanceChannel, log)
				if !ok {
					continue
				}
				if p.Type == "balance_changed" && onBalance != nil {
					onBalance(p.UserID)
				}
				hub.Broadcast(p)
			}
		}
	}()
}

func decode(channel, payload, balanceChannel string, log *zap.Logger) (Push, bool) {
	if channel == balanceChannel {
		var ev events.BalanceChanged
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Warn("ws-subscriber-unmarshal", zap.String("channel", channel), zap.Error(err))
			return Push{}, false
		}
		return Push{Type: "balance_changed", UserID: ev.UserID, Payload: ev}, true
	}

	var ev events.BetSettled
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Warn("ws-subscriber-unmarshal", zap.String("channel", channel), zap.Error(err))
		return Push{}, false
	}
	return Push{Type: "bet_settled", UserID: ev.UserID, Payload: ev}, true
}
