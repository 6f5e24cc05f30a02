package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

type Settler interface {
	SettleMarket(ctx context.Context, req settlement.Request) (settlement.Result, error)
}

// ProcessedSet é implementado por settlement.MarketRepo: mercado registrado
// e sem apostas pending
type ProcessedSet interface {
	Processed(ctx context.Context, marketIDs []string) (map[string]bool, error)
}

type MarketError struct {
	MarketID string `json:"marketId"`
	Error    string `json:"error"`
}

type CycleReport struct {
	Success      bool          `json:"success"`
	Markets      int           `json:"markets"`
	Skipped      int           `json:"skipped"`
	SettledCount int           `json:"settledCount"`
	Errors       []MarketError `json:"errors"`
}

type Config struct {
	Interval time.Duration
	Workers  int
}

// Scheduler consulta o feed periodicamente e liquida cada mercado resolvido.
// Um mercado com falha não impede os outros e não é marcado como processado.
type Scheduler struct {
	source    ResultSource
	settler   Settler
	processed ProcessedSet
	cfg       Config
	log       *zap.Logger

	cycleMu sync.Mutex // um ciclo por vez (ticker e disparo manual)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(source ResultSource, settler Settler, processed ProcessedSet, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{source: source, settler: settler, processed: processed, cfg: cfg, log: log}
}

// Start roda um ciclo imediatamente e depois a cada intervalo, até ctx ou Stop.
// Bloqueia; chame em goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("scheduler already started")
	}
	s.cancel = cancel
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	defer cancel()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("scheduler-started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("workers", s.cfg.Workers))

	s.safeCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.safeCycle(ctx)
		case <-ctx.Done():
			s.log.Info("scheduler-stopped")
			return nil
		}
	}
}

// Stop para de aceitar ciclos novos e espera o ciclo em andamento terminar
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.running.Wait()
}

func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			CyclesTotal.WithLabelValues("panic").Inc()
			s.log.Error("scheduler-cycle-panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if ctx.Err() != nil {
		return
	}
	s.RunCycle(ctx)
}

// RunCycle executa um ciclo completo. Cancelar ctx impede novos mercados de
// começarem; liquidações já iniciadas seguem até o fim num contexto destacado.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	defer func() { CycleDuration.Observe(time.Since(start).Seconds()) }()

	report := CycleReport{Errors: []MarketError{}}

	resolved, err := s.source.Resolved(ctx)
	if err != nil {
		// sem retry no ciclo: a próxima execução tenta de novo
		CyclesTotal.WithLabelValues("feed_error").Inc()
		s.log.Warn("result-feed-fetch-failed", zap.Error(err))
		report.Errors = append(report.Errors, MarketError{Error: err.Error()})
		return report
	}

	todo := dedupe(resolved)
	report.Markets = len(todo)

	ids := make([]string, 0, len(todo))
	for _, r := range todo {
		ids = append(ids, r.MarketID)
	}
	done, err := s.processed.Processed(ctx, ids)
	if err != nil {
		CyclesTotal.WithLabelValues("storage_error").Inc()
		s.log.Error("processed-markets-lookup-failed", zap.Error(err))
		report.Errors = append(report.Errors, MarketError{Error: err.Error()})
		return report
	}

	settleCtx := context.WithoutCancel(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)

	for _, r := range todo {
		if done[r.MarketID] {
			report.Skipped++
			continue
		}
		if ctx.Err() != nil {
			break
		}

		r := r
		g.Go(func() error {
			res, err := s.settleOne(settleCtx, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				MarketErrorsTotal.Inc()
				report.Errors = append(report.Errors, MarketError{MarketID: r.MarketID, Error: err.Error()})
				return nil
			}
			report.SettledCount += res.SettledCount
			return nil
		})
	}
	_ = g.Wait()

	report.Success = len(report.Errors) == 0
	outcome := "ok"
	if !report.Success {
		outcome = "partial"
	}
	CyclesTotal.WithLabelValues(outcome).Inc()

	s.log.Info("scheduler-cycle-finished",
		zap.Int("markets", report.Markets),
		zap.Int("skipped", report.Skipped),
		zap.Int("settled", report.SettledCount),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("took", time.Since(start)))
	return report
}

func (s *Scheduler) settleOne(ctx context.Context, r MarketResult) (res settlement.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic settling market %s: %v", r.MarketID, p)
		}
	}()

	res, err = s.settler.SettleMarket(ctx, settlement.Request{
		MarketID:   r.MarketID,
		ResultCode: r.ResultCode,
		Mode:       r.Mode,
		Trigger:    settlement.TriggerScheduler,
	})
	if err != nil {
		s.log.Error("market-settlement-failed",
			zap.String("market_id", r.MarketID),
			zap.String("settlement_mode", string(r.Mode)),
			zap.Error(err))
	}
	return res, err
}

// dedupe mantém a primeira resolução de cada mercado
func dedupe(in []MarketResult) []MarketResult {
	seen := make(map[string]bool, len(in))
	out := make([]MarketResult, 0, len(in))
	for _, r := range in {
		if seen[r.MarketID] {
			continue
		}
		seen[r.MarketID] = true
		out = append(out, r)
	}
	return out
}
