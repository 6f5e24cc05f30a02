package ledger

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/topics"
)

// RedisNotifier publica mudanças de saldo no canal pub/sub lido pelo wallet-service
type RedisNotifier struct {
	r       *redis.Client
	channel string
}

func NewRedisNotifier(r *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = topics.BalanceChangedChannel
	}
	return &RedisNotifier{r: r, channel: channel}
}

func (n *RedisNotifier) BalanceChanged(ctx context.Context, ev events.BalanceChanged) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.r.Publish(ctx, n.channel, b).Err()
}
