package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/scheduler"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/settlement-service/dto"
	"github.com/radieske/bet-settlement-engine/internal/shared/auth"
)

type Settler interface {
	SettleMarket(ctx context.Context, req settlement.Request) (settlement.Result, error)
}

type CycleRunner interface {
	RunCycle(ctx context.Context) scheduler.CycleReport
}

type Reconciler interface {
	Reconcile(ctx context.Context) (settlement.Report, error)
}

// Server expõe a API administrativa de liquidação; todas as rotas exigem JWT de admin
type Server struct {
	log       *zap.Logger
	settler   Settler
	cycles    CycleRunner
	reconcile Reconciler
	verifier  *auth.Verifier

	reconcileTimeout time.Duration
}

func NewServer(log *zap.Logger, s Settler, c CycleRunner, r Reconciler, v *auth.Verifier) *Server {
	return &Server{log: log, settler: s, cycles: c, reconcile: r, verifier: v, reconcileTimeout: 2 * time.Minute}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(s.verifier, s.log))

		// sem Timeout: a liquidação roda destacada do request e sempre responde
		// com o resultado real
		r.Post("/settle-market", s.settleMarket)
		r.Post("/scheduler/run", s.runCycle)

		r.With(chimw.Timeout(s.reconcileTimeout)).Get("/reconcile", s.runReconcile)
	})
	return r
}

func (s *Server) settleMarket(w http.ResponseWriter, r *http.Request) {
	var body dto.SettleMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}

	req := settlement.Request{
		MarketID:   body.MarketID,
		ResultCode: body.ResultCode,
		Mode:       settlement.Mode(body.SettlementMode),
		Trigger:    settlement.TriggerAdmin,
	}
	// valida antes de qualquer acesso ao storage
	if err := settlement.Validate(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	// cliente que desconecta não interrompe um mercado pela metade
	res, err := s.settler.SettleMarket(context.WithoutCancel(r.Context()), req)
	switch {
	case errors.Is(err, settlement.ErrValidation):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		s.log.Error("settle-market-failed",
			zap.String("market_id", req.MarketID),
			zap.String("settlement_mode", string(req.Mode)),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "settlement failed"})
		return
	}

	if c, ok := auth.ClaimsFrom(r.Context()); ok {
		s.log.Info("market-settled-by-admin",
			zap.String("market_id", req.MarketID),
			zap.String("subject", c.Subject),
			zap.Int("settled", res.SettledCount),
			zap.Int("failed", len(res.Failures)))
	}

	writeJSON(w, http.StatusOK, dto.SettleMarketResponse{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("settled %d bets (%d failures)", res.SettledCount, len(res.Failures)),
	})
}

// runCycle dispara um ciclo do scheduler fora do ticker
func (s *Server) runCycle(w http.ResponseWriter, r *http.Request) {
	rep := s.cycles.RunCycle(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, dto.RunCycleResponse{
		Success:      rep.Success,
		SettledCount: rep.SettledCount,
		Markets:      rep.Markets,
		Skipped:      rep.Skipped,
		Errors:       rep.Errors,
	})
}

func (s *Server) runReconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reconcile.Reconcile(r.Context())
	if r.Context().Err() != nil {
		// o middleware de Timeout já respondeu 504
		s.log.Warn("reconcile-timeout", zap.Error(r.Context().Err()))
		return
	}
	if err != nil {
		s.log.Error("reconcile-failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "reconcile failed"})
		return
	}
	if !rep.Clean() {
		s.log.Warn("reconcile-mismatches",
			zap.Int("mismatches", len(rep.Mismatches)),
			zap.Int("orphans", len(rep.Orphans)))
	}
	writeJSON(w, http.StatusOK, dto.ReconcileResponse{Success: rep.Clean(), Data: rep})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
