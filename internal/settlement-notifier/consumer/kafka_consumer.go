package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado com commit manual
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Broadcaster é implementado por pubsub.SettledPublisher
type Broadcaster interface {
	PublishSettled(ctx context.Context, ev events.BetSettled) error
}

// Processor consome bet_settled do Kafka e repassa para o canal Redis lido pelo
// wallet-service. O offset só é commitado depois do broadcast ou do envio à DLQ.
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	Broadcaster Broadcaster
	DLQ         MessageWriter // opcional

	Retries int
	Backoff time.Duration

	OnConsumed  func()       // métricas (counter++)
	OnBroadcast func()       // métricas
	OnDLQ       func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop de consumo até ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.call(p.OnConsumed)

		if err := p.Handle(ctx, m); err != nil {
			// sem commit: a mensagem volta no próximo rebalance/restart
			p.Log.Error("settled event not handled", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("handle")
			continue
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

// Handle processa uma mensagem. Retorna erro só quando nem o broadcast nem a DLQ funcionaram.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.BetSettled
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.BetID == "" || ev.UserID == "" {
		p.Log.Warn("invalid bet_settled message", zap.ByteString("key", m.Key), zap.Error(err))
		p.onError("decode")
		return p.deadLetter(ctx, m, "decode")
	}

	var err error
	attempts := p.Retries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff * time.Duration(i)):
			}
		}
		if err = p.Broadcaster.PublishSettled(ctx, ev); err == nil {
			p.call(p.OnBroadcast)
			return nil
		}
		p.Log.Warn("redis publish failed",
			zap.String("bet_id", ev.BetID),
			zap.Int("attempt", i+1),
			zap.Error(err))
	}
	p.onError("broadcast")
	return p.deadLetter(ctx, m, "broadcast")
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string) error {
	if p.DLQ == nil {
		// sem DLQ configurada a mensagem é descartada
		return nil
	}
	err := p.DLQ.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "failed-stage", Value: []byte(stage)},
			{Key: "source-offset", Value: []byte(fmt.Sprint(m.Offset))},
		},
	})
	if err != nil {
		return fmt.Errorf("write dlq: %w", err)
	}
	p.call(p.OnDLQ)
	return nil
}

func (p *Processor) call(f func()) {
	if f != nil {
		f()
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
