package producer

import (
	"context"

	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// KafkaPublisher publica os eventos pós-commit da liquidação
type KafkaPublisher struct {
	BetSettledWriter    *kafka.Writer
	MarketSettledWriter *kafka.Writer
}

func NewKafkaPublisher(bet, market *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{BetSettledWriter: bet, MarketSettledWriter: market}
}

// BetSettled usa betId como key
func (p *KafkaPublisher) BetSettled(ctx context.Context, ev events.BetSettled) error {
	return kafka.WriteJSON(ctx, p.BetSettledWriter, ev.BetID, ev)
}

// MarketSettled usa marketId como key
func (p *KafkaPublisher) MarketSettled(ctx context.Context, ev events.MarketSettled) error {
	return kafka.WriteJSON(ctx, p.MarketSettledWriter, ev.MarketID, ev)
}

func (p *KafkaPublisher) Close() error {
	err := p.BetSettledWriter.Close()
	if e := p.MarketSettledWriter.Close(); err == nil {
		err = e
	}
	return err
}
