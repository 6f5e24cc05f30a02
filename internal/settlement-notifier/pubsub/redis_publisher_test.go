package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/topics"
)

func TestSettledPublisher(t *testing.T) {
	t.Run("defaults-to-bet-settled-channel", func(t *testing.T) {
		assert.Equal(t, topics.BetSettledChannel, NewSettledPublisher(nil, "").Channel())
		assert.Equal(t, "ui", NewSettledPublisher(nil, "ui").Channel())
	})

	t.Run("wraps-redis-errors", func(t *testing.T) {
		r := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
		defer r.Close()

		err := NewSettledPublisher(r, "").PublishSettled(context.Background(), events.BetSettled{BetID: "b1", UserID: "u1"})
		assert.ErrorContains(t, err, "publish "+topics.BetSettledChannel)
	})
}
