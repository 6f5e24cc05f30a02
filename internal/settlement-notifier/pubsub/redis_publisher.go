package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/topics"
)

// SettledPublisher repassa apostas liquidadas para o canal Redis assinado
// pelo hub de WebSocket do wallet-service.
type SettledPublisher struct {
	r       *redis.Client
	channel string
}

func NewSettledPublisher(r *redis.Client, channel string) *SettledPublisher {
	if channel == "" {
		channel = topics.BetSettledChannel
	}
	return &SettledPublisher{r: r, channel: channel}
}

func (p *SettledPublisher) Channel() string { return p.channel }

// PublishSettled publica o evento já normalizado; o hub decodifica events.BetSettled
func (p *SettledPublisher) PublishSettled(ctx context.Context, ev events.BetSettled) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal bet_settled: %w", err)
	}
	if err := p.r.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
