package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceCache guarda saldos derivados em memória.
// O ledger continua sendo a fonte da verdade; o cache só evita somar tudo a cada GET.
type BalanceCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

type BalanceCacheConfig struct {
	NumCounters int64 // ~10x o número de carteiras esperadas
	MaxCost     int64 // em itens (custo 1 por saldo)
	TTL         time.Duration
	Logger      *zap.Logger
}

func NewBalanceCache(cfg BalanceCacheConfig) (*BalanceCache, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100_000
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 10_000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &BalanceCache{cache: c, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

func (b *BalanceCache) Get(userID string) (decimal.Decimal, bool) {
	v, ok := b.cache.Get(userID)
	if !ok {
		BalanceCacheMissesTotal.Inc()
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	if !ok {
		BalanceCacheMissesTotal.Inc()
		return decimal.Zero, false
	}
	BalanceCacheHitsTotal.Inc()
	return d, true
}

func (b *BalanceCache) Set(userID string, balance decimal.Decimal) {
	if b.cache.SetWithTTL(userID, balance, 1, b.ttl) {
		// ristretto aplica escritas de forma assíncrona
		b.cache.Wait()
	}
}

func (b *BalanceCache) Delete(userID string) {
	b.cache.Del(userID)
	BalanceCacheInvalidationsTotal.Inc()
	b.logger.Debug("balance-cache-invalidated", zap.String("user_id", userID))
}

func (b *BalanceCache) Close() {
	b.cache.Close()
}
