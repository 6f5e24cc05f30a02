package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("lock not acquired")

// só remove a chave se o token ainda for nosso (lock pode ter expirado e sido pego por outro)
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker é um lock distribuído simples (SET NX PX) por chave
type RedisLocker struct {
	r      *redis.Client
	ttl    time.Duration
	prefix string
	retry  time.Duration
}

func NewRedisLocker(r *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{r: r, ttl: ttl, prefix: prefix, retry: 50 * time.Millisecond}
}

// Lock bloqueia até obter a chave ou o ctx acabar. O unlock retornado é idempotente.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()
	waited := false

	for {
		ok, err := l.r.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", k, err)
		}
		if ok {
			break
		}
		if !waited {
			MarketLockContendedTotal.Inc()
			waited = true
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, k, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release não deve depender do ctx do chamador (pode já estar cancelado)
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.r, []string{k}, token).Err()
	}, nil
}
