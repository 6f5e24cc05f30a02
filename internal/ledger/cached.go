package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// BalanceCache é implementado por cache.BalanceCache (ristretto)
type BalanceCache interface {
	Get(userID string) (decimal.Decimal, bool)
	Set(userID string, balance decimal.Decimal)
	Delete(userID string)
}

// Notifier avisa interessados (wallet ws, por exemplo) que um saldo mudou
type Notifier interface {
	BalanceChanged(ctx context.Context, ev events.BalanceChanged) error
}

// CachedStore decora o Store com cache de saldo e notificação de mudança.
// Escritas feitas com AppendTx dentro de transação alheia precisam chamar Committed após o commit.
type CachedStore struct {
	*Store
	cache    BalanceCache
	notifier Notifier
	log      *zap.Logger

	// geração de invalidação por usuário: um BalanceOf que leu o banco antes
	// de uma invalidação não pode repovoar o cache com o saldo antigo
	mu  sync.Mutex
	gen map[string]uint64
}

func NewCachedStore(s *Store, c BalanceCache, n Notifier, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{Store: s, cache: c, notifier: n, log: log, gen: make(map[string]uint64)}
}

func (c *CachedStore) BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	if c.cache == nil {
		return c.Store.BalanceOf(ctx, userID)
	}
	if b, ok := c.cache.Get(userID); ok {
		return b, nil
	}

	g := c.generation(userID)
	b, err := c.Store.BalanceOf(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if c.generation(userID) != g {
		return b, nil
	}
	c.cache.Set(userID, b)
	// invalidação entre a checagem e o Set: desfaz
	if c.generation(userID) != g {
		c.cache.Delete(userID)
	}
	return b, nil
}

// Invalidate descarta o saldo em cache do usuário. Também é chamado quando
// outro serviço avisa pelo Redis que o saldo mudou.
func (c *CachedStore) Invalidate(userID string) {
	c.mu.Lock()
	c.gen[userID]++
	c.mu.Unlock()

	if c.cache != nil {
		c.cache.Delete(userID)
	}
}

func (c *CachedStore) generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[userID]
}

func (c *CachedStore) Append(ctx context.Context, e Entry) (Entry, error) {
	out, err := c.Store.Append(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	c.Committed(ctx, out)
	return out, nil
}

func (c *CachedStore) AppendDebit(ctx context.Context, e Entry) (Entry, error) {
	out, err := c.Store.AppendDebit(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	c.Committed(ctx, out)
	return out, nil
}

func (c *CachedStore) CompletePending(ctx context.Context, id string, to Status) (Entry, error) {
	out, err := c.Store.CompletePending(ctx, id, to)
	if err != nil {
		return out, err
	}
	c.Committed(ctx, out)
	return out, nil
}

// Committed invalida o cache e notifica para lançamentos já persistidos.
// Lançamentos pending não mexem no saldo e são ignorados.
func (c *CachedStore) Committed(ctx context.Context, entries ...Entry) {
	for _, e := range entries {
		if e.Status != StatusCompleted {
			continue
		}
		c.Invalidate(e.UserID)
		if c.notifier == nil {
			continue
		}

		balance, err := c.Store.BalanceOf(ctx, e.UserID)
		if err != nil {
			c.log.Warn("balance-recompute-failed", zap.String("user_id", e.UserID), zap.Error(err))
			continue
		}
		ev := events.BalanceChanged{
			UserID:    e.UserID,
			Balance:   balance.String(),
			Reason:    string(e.Type),
			Reference: e.Reference,
		}
		if err := c.notifier.BalanceChanged(ctx, ev); err != nil {
			NotifyFailuresTotal.Inc()
			c.log.Warn("balance-notify-failed", zap.String("user_id", e.UserID), zap.Error(err))
		}
	}
}
