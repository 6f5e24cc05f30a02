package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/money"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

const (
	TriggerAdmin     = "admin"
	TriggerScheduler = "scheduler"
	TriggerCLI       = "cli"
)

type BetStore interface {
	FindPendingByMarket(ctx context.Context, marketID string) ([]bets.Bet, error)
	TransitionStatus(ctx context.Context, q db.DBTX, t bets.Transition) error
}

type LedgerWriter interface {
	AppendTx(ctx context.Context, q db.DBTX, e ledger.Entry) (ledger.Entry, error)
}

// committer é implementado por ledger.CachedStore
type committer interface {
	Committed(ctx context.Context, entries ...ledger.Entry)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(q db.DBTX) error) error
}

type MarketRecorder interface {
	Record(ctx context.Context, m MarketSettlement) error
}

// EventPublisher recebe os eventos pós-commit (Kafka no settlement-service)
type EventPublisher interface {
	BetSettled(ctx context.Context, ev events.BetSettled) error
	MarketSettled(ctx context.Context, ev events.MarketSettled) error
}

type Request struct {
	MarketID   string `json:"marketId"`
	ResultCode string `json:"resultCode,omitempty"`
	Mode       Mode   `json:"settlementMode"`
	Trigger    string `json:"-"`
}

type Failure struct {
	BetID  string `json:"betId"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type Result struct {
	Success      bool      `json:"success"`
	MarketID     string    `json:"marketId"`
	SettledCount int       `json:"settledCount"`
	Failures     []Failure `json:"failures"`
}

type Engine struct {
	bets     BetStore
	ledger   LedgerWriter
	tx       TxRunner
	markets  MarketRecorder
	locker   Locker
	events   EventPublisher
	log      *zap.Logger
	decimals int32
	now      func() time.Time
}

type Option func(*Engine)

func WithLocker(l Locker) Option                 { return func(e *Engine) { e.locker = l } }
func WithPublisher(p EventPublisher) Option      { return func(e *Engine) { e.events = p } }
func WithMarketRecorder(r MarketRecorder) Option { return func(e *Engine) { e.markets = r } }
func WithCurrencyDecimals(d int32) Option        { return func(e *Engine) { e.decimals = d } }
func WithClock(now func() time.Time) Option      { return func(e *Engine) { e.now = now } }

func NewEngine(b BetStore, l LedgerWriter, tx TxRunner, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		bets:     b,
		ledger:   l,
		tx:       tx,
		locker:   NewLocalLocker(),
		log:      log,
		decimals: money.DefaultDecimals,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Validate checa a requisição sem tocar no storage
func Validate(req Request) error {
	if req.MarketID == "" {
		return &ValidationError{Field: "marketId", Reason: "required"}
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.Mode == ModeVoid {
		return nil
	}
	if req.ResultCode == "" {
		return &ValidationError{Field: "resultCode", Reason: "required unless settlementMode is void"}
	}
	// o feed não é confiável: resultCode segue o formato de selectionId
	if !bets.ValidSelection(req.ResultCode) {
		return &ValidationError{Field: "resultCode", Reason: fmt.Sprintf("malformed value %q", req.ResultCode)}
	}
	return nil
}

// SettleMarket liquida todas as apostas pending do mercado.
// Falhas por aposta vão para Failures e não interrompem o lote; erro retornado
// significa falha de sistema (validação, lock ou leitura das apostas).
func (e *Engine) SettleMarket(ctx context.Context, req Request) (Result, error) {
	res := Result{MarketID: req.MarketID, Failures: []Failure{}}

	if err := Validate(req); err != nil {
		return res, err
	}
	if req.Mode == ModeVoid {
		req.ResultCode = ""
	}
	if req.Trigger == "" {
		req.Trigger = TriggerAdmin
	}

	start := time.Now()
	defer func() { MarketDuration.Observe(time.Since(start).Seconds()) }()

	log := e.log.With(
		zap.String("market_id", req.MarketID),
		zap.String("settlement_mode", string(req.Mode)),
		zap.String("trigger", req.Trigger),
	)

	unlock, err := e.locker.Lock(ctx, req.MarketID)
	if err != nil {
		log.Error("market-lock-failed", zap.Error(err))
		return res, &StorageError{Op: "lock market", Err: err}
	}
	defer unlock()

	pending, err := e.bets.FindPendingByMarket(ctx, req.MarketID)
	if err != nil {
		log.Error("find-pending-bets-failed", zap.Error(err))
		return res, &StorageError{Op: "find pending bets", Err: err}
	}

	for _, b := range pending {
		settled, failure := e.settleBet(ctx, req, b)
		if failure != nil {
			BetFailuresTotal.WithLabelValues(failure.Reason).Inc()
			log.Warn("bet-settlement-failed",
				zap.String("bet_id", b.ID),
				zap.String("reason", failure.Reason),
				zap.String("error", failure.Error))
			res.Failures = append(res.Failures, *failure)
			continue
		}

		res.SettledCount++
		BetsSettledTotal.WithLabelValues(settled.Status).Inc()
		if f, _ := money.Parse(settled.Payout); money.Positive(f) {
			PayoutTotal.Add(f.InexactFloat64())
		}
		e.publishBet(ctx, log, settled)
	}

	res.Success = true
	e.finishMarket(ctx, log, req, res)

	log.Info("market-settled",
		zap.Int("pending", len(pending)),
		zap.Int("settled", res.SettledCount),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}

// settleBet aplica CAS + auditoria + crédito numa única transação
func (e *Engine) settleBet(ctx context.Context, req Request, b bets.Bet) (events.BetSettled, *Failure) {
	out, err := Classify(b, req.ResultCode, req.Mode, e.decimals)
	if err != nil {
		return events.BetSettled{}, &Failure{BetID: b.ID, Reason: ReasonValidation, Error: err.Error()}
	}

	settledAt := e.now()
	var credit *ledger.Entry

	err = e.tx.WithTx(ctx, func(q db.DBTX) error {
		err := e.bets.TransitionStatus(ctx, q, bets.Transition{
			BetID:      b.ID,
			To:         out.Status,
			Payout:     out.Payout,
			ResultCode: req.ResultCode,
			Mode:       string(req.Mode),
			Reason:     fmt.Sprintf("%s settlement (%s)", req.Mode, req.Trigger),
			SettledAt:  settledAt,
		})
		if err != nil {
			return err
		}

		if out.Credit == "" {
			return nil
		}
		entry, err := e.ledger.AppendTx(ctx, q, ledger.Entry{
			UserID:    b.UserID,
			Type:      out.Credit,
			Amount:    out.Payout,
			Status:    ledger.StatusCompleted,
			Reference: b.ID,
			CreatedAt: settledAt,
		})
		if err != nil {
			return err
		}
		credit = &entry
		return nil
	})
	if err != nil {
		return events.BetSettled{}, &Failure{BetID: b.ID, Reason: failureReason(err), Error: err.Error()}
	}

	if c, ok := e.ledger.(committer); ok && credit != nil {
		c.Committed(ctx, *credit)
	}

	return events.BetSettled{
		BetID:          b.ID,
		UserID:         b.UserID,
		MarketID:       b.MarketID,
		SelectionID:    b.SelectionID,
		Status:         string(out.Status),
		Payout:         money.Format(out.Payout, e.decimals),
		ResultCode:     req.ResultCode,
		SettlementMode: string(req.Mode),
		SettledAt:      settledAt,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, bets.ErrConflict), errors.Is(err, bets.ErrNotFound), errors.Is(err, ledger.ErrDuplicate):
		return ReasonConflict
	case errors.Is(err, bets.ErrInvalidTransition), errors.Is(err, ledger.ErrValidation), errors.Is(err, ErrValidation):
		return ReasonValidation
	default:
		return ReasonStorage
	}
}

func (e *Engine) publishBet(ctx context.Context, log *zap.Logger, ev events.BetSettled) {
	if e.events == nil {
		return
	}
	if err := e.events.BetSettled(ctx, ev); err != nil {
		PublishFailuresTotal.WithLabelValues("bet_settled").Inc()
		log.Warn("publish-bet-settled-failed", zap.String("bet_id", ev.BetID), zap.Error(err))
	}
}

// finishMarket grava o registro do mercado e publica o resumo; falhas aqui não mudam o resultado
func (e *Engine) finishMarket(ctx context.Context, log *zap.Logger, req Request, res Result) {
	now := e.now()

	// falha de storage em alguma aposta: não marca o mercado, o scheduler tenta de novo
	if e.markets != nil && !hasStorageFailure(res.Failures) {
		err := e.markets.Record(ctx, MarketSettlement{
			MarketID:     req.MarketID,
			ResultCode:   req.ResultCode,
			Mode:         req.Mode,
			SettledCount: res.SettledCount,
			FailedCount:  len(res.Failures),
			Trigger:      req.Trigger,
			SettledAt:    now,
		})
		if err != nil {
			log.Warn("record-market-settlement-failed", zap.Error(err))
		}
	}

	if e.events == nil {
		return
	}
	err := e.events.MarketSettled(ctx, events.MarketSettled{
		MarketID:       req.MarketID,
		ResultCode:     req.ResultCode,
		SettlementMode: string(req.Mode),
		SettledCount:   res.SettledCount,
		FailedCount:    len(res.Failures),
		Trigger:        req.Trigger,
		Ts:             now,
	})
	if err != nil {
		PublishFailuresTotal.WithLabelValues("market_settled").Inc()
		log.Warn("publish-market-settled-failed", zap.Error(err))
	}
}

func hasStorageFailure(fs []Failure) bool {
	for _, f := range fs {
		if f.Reason == ReasonStorage {
			return true
		}
	}
	return false
}
