package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/shared/money"
	"github.com/radieske/bet-settlement-engine/internal/wallet-service/dto"
)

// Ledger define as operações de carteira usadas pelo handler HTTP
// (implementado por ledger.CachedStore)
type Ledger interface {
	BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error)
	Append(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	AppendDebit(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	CompletePending(ctx context.Context, id string, to ledger.Status) (ledger.Entry, error)
	Entries(ctx context.Context, userID string, limit int) ([]ledger.Entry, error)
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log      *zap.Logger
	ledger   Ledger
	ws       http.Handler
	decimals int32
	validate *validator.Validate
}

// NewServer instancia o servidor HTTP de wallet. ws pode ser nil.
func NewServer(log *zap.Logger, l Ledger, ws http.Handler, decimals int32) *Server {
	return &Server{log: log, ledger: l, ws: ws, decimals: decimals, validate: validator.New()}
}

// Router retorna o router HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/wallet", s.getWallet) // ?userId=
		r.Post("/wallet/deposit", s.deposit)
		r.Post("/wallet/deposits/{id}/complete", s.completeDeposit)
		r.Post("/wallet/withdraw", s.withdraw)
		r.Get("/wallet/transactions", s.transactions) // ?userId=&limit=
	})
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	return r
}

// getWallet retorna o saldo derivado do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	bal, err := s.ledger.BalanceOf(r.Context(), userID)
	if err != nil {
		s.internal(w, "get-balance-failed", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, Balance: money.Format(bal, s.decimals)})
}

// deposit credita a carteira; com pending=true o saldo só muda na confirmação
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !s.decode(w, r, &req) {
		return
	}
	st := ledger.StatusCompleted
	if req.Pending {
		st = ledger.StatusPending
	}
	e, err := s.ledger.Append(r.Context(), ledger.Entry{
		UserID:    req.UserID,
		Type:      ledger.TypeDeposit,
		Amount:    req.Amount,
		Status:    st,
		Reference: req.ExternalRef,
	})
	if s.ledgerError(w, "deposit-failed", req.UserID, err) {
		return
	}
	s.writeEntry(w, r, http.StatusCreated, e)
}

// completeDeposit resolve um depósito pending (callback do provedor)
func (s *Server) completeDeposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.CompleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.ledger.CompletePending(r.Context(), id, ledger.Status(req.Status))
	if s.ledgerError(w, "complete-deposit-failed", id, err) {
		return
	}
	s.writeEntry(w, r, http.StatusOK, e)
}

// withdraw debita a carteira; saldo insuficiente vira 409
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.ledger.AppendDebit(r.Context(), ledger.Entry{
		UserID:    req.UserID,
		Type:      ledger.TypeWithdraw,
		Amount:    req.Amount,
		Reference: req.ExternalRef,
	})
	if s.ledgerError(w, "withdraw-failed", req.UserID, err) {
		return
	}
	s.writeEntry(w, r, http.StatusCreated, e)
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.ledger.Entries(r.Context(), userID, limit)
	if err != nil {
		s.internal(w, "list-entries-failed", userID, err)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, dto.TransactionsResponse{UserID: userID, Entries: entries})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// ledgerError traduz os erros do ledger em status HTTP; retorna true se respondeu
func (s *Server) ledgerError(w http.ResponseWriter, event, key string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ledger.ErrValidation):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrDuplicate):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		s.internal(w, event, key, err)
	}
	return true
}

func (s *Server) internal(w http.ResponseWriter, event, key string, err error) {
	s.log.Error(event, zap.String("key", key), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
}

func (s *Server) writeEntry(w http.ResponseWriter, r *http.Request, status int, e ledger.Entry) {
	bal, err := s.ledger.BalanceOf(r.Context(), e.UserID)
	if err != nil {
		// lançamento já gravado; saldo fica para o próximo GET
		s.log.Warn("balance-after-write-failed", zap.String("user_id", e.UserID), zap.Error(err))
	}
	writeJSON(w, status, dto.EntryResponse{Entry: e, Balance: money.Format(bal, s.decimals)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
