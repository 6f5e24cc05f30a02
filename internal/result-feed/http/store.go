package http

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/result-feed/dto"
)

// Store guarda as resoluções em memória. Uma nova resolução para o mesmo
// mercado substitui a anterior.
type Store struct {
	mu      sync.RWMutex
	results map[string]dto.Result
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{results: make(map[string]dto.Result), now: time.Now}
}

func (s *Store) Put(r dto.Result) dto.Result {
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.results[r.MarketID] = r
	s.mu.Unlock()
	return r
}

func (s *Store) Delete(marketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.results[marketID]
	delete(s.results, marketID)
	return ok
}

// List retorna as resoluções em ordem de resolução
func (s *Store) List() []dto.Result {
	s.mu.RLock()
	out := make([]dto.Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ResolvedAt.Equal(out[j].ResolvedAt) {
			return out[i].MarketID < out[j].MarketID
		}
		return out[i].ResolvedAt.Before(out[j].ResolvedAt)
	})
	return out
}

// Market descreve um mercado do catálogo simulado e suas seleções
type Market struct {
	ID         string
	Selections []string
}

// AutoResolve resolve um mercado aleatório do catálogo a cada intervalo, até ctx.
// Cerca de 1 em 10 resoluções é void para exercitar o reembolso.
func (s *Store) AutoResolve(ctx context.Context, interval time.Duration, catalog []Market, rng *rand.Rand) {
	if len(catalog) == 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m := catalog[rng.Intn(len(catalog))]
			r := dto.Result{MarketID: m.ID, SettlementMode: dto.ModeNormal}
			if rng.Intn(10) == 0 || len(m.Selections) == 0 {
				r.SettlementMode = dto.ModeVoid
			} else {
				r.ResultCode = m.Selections[rng.Intn(len(m.Selections))]
			}
			s.Put(r)
		}
	}
}
