package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/bet-service/dto"
	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

type BetRegistry interface {
	Create(ctx context.Context, q db.DBTX, b bets.Bet) (bets.Bet, error)
	Get(ctx context.Context, id string) (bets.Bet, error)
}

type Ledger interface {
	AppendDebitTx(ctx context.Context, q db.DBTX, e ledger.Entry) (ledger.Entry, error)
	Committed(ctx context.Context, entries ...ledger.Entry)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(q db.DBTX) error) error
}

type OddsChecker interface {
	CurrentOdd(ctx context.Context, marketID, selectionID string) (decimal.Decimal, bool, error)
}

type Publisher interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
}

type Server struct {
	log      *zap.Logger
	bets     BetRegistry
	ledger   Ledger
	tx       TxRunner
	odds     OddsChecker
	publ     Publisher
	validate *validator.Validate
}

func NewServer(log *zap.Logger, b BetRegistry, l Ledger, tx TxRunner, o OddsChecker, p Publisher) *Server {
	v := validator.New()
	// selectionId precisa poder aparecer como resultCode na liquidação
	_ = v.RegisterValidation("selection", func(fl validator.FieldLevel) bool {
		return bets.ValidSelection(fl.Field().String())
	})
	return &Server{log: log, bets: b, ledger: l, tx: tx, odds: o, publ: p, validate: v}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer, chimw.Timeout(10*time.Second))
	r.Post("/bets", s.placeBet)
	r.Get("/bets/{id}", s.getBet)
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Stake.IsPositive() || !req.Odds.IsPositive() {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "stake and odds must be positive"})
		return
	}

	// 1) Valida odd atual no cache; cache fora do ar não bloqueia a aposta
	if s.odds != nil {
		cur, found, err := s.odds.CurrentOdd(r.Context(), req.MarketID, req.SelectionID)
		switch {
		case err != nil:
			s.log.Warn("odds-check-skipped", zap.String("market_id", req.MarketID), zap.Error(err))
		case found && !cur.Equal(req.Odds):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "odds changed", CurrentOdds: cur.String()})
			return
		}
	}

	// 2) Aposta pending + débito do stake na mesma transação
	var (
		bet   bets.Bet
		debit ledger.Entry
	)
	err := s.tx.WithTx(r.Context(), func(q db.DBTX) error {
		var err error
		bet, err = s.bets.Create(r.Context(), q, bets.Bet{
			UserID:      req.UserID,
			MarketID:    req.MarketID,
			SelectionID: req.SelectionID,
			Stake:       req.Stake,
			Odds:        req.Odds,
		})
		if err != nil {
			return err
		}
		debit, err = s.ledger.AppendDebitTx(r.Context(), q, ledger.Entry{
			UserID:    req.UserID,
			Type:      ledger.TypeBet,
			Amount:    req.Stake,
			Reference: bet.ID,
		})
		return err
	})
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "insufficient funds"})
		return
	case errors.Is(err, bets.ErrInvalidBet), errors.Is(err, ledger.ErrValidation):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		s.log.Error("place-bet-failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}
	s.ledger.Committed(r.Context(), debit)

	// 3) Publica evento bet_placed; falha só é logada, a aposta já existe
	if s.publ != nil {
		err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
			BetID:       bet.ID,
			UserID:      bet.UserID,
			MarketID:    bet.MarketID,
			SelectionID: bet.SelectionID,
			Stake:       bet.Stake.String(),
			Odds:        bet.Odds.String(),
		})
		if err != nil {
			s.log.Warn("publish-bet-placed-failed", zap.String("bet_id", bet.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:           bet.ID,
		Status:          string(bet.Status),
		PotentialPayout: bet.PotentialPayout.String(),
	})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := s.bets.Get(r.Context(), id)
	if errors.Is(err, bets.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
		return
	}
	if err != nil {
		s.log.Error("get-bet-failed", zap.String("bet_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, dto.BetResponse{Bet: b})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
