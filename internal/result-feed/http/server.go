package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/result-feed/dto"
)

var resultsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "result_feed_results_published_total",
	Help: "Resoluções de mercado publicadas no feed simulado",
})

// Server simula o feed externo de resultados consultado pelo scheduler.
// Não valida resultCode: entradas malformadas servem para testar o engine.
type Server struct {
	log      *zap.Logger
	store    *Store
	validate *validator.Validate
}

func NewServer(log *zap.Logger, store *Store) *Server {
	return &Server{log: log, store: store, validate: validator.New()}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	r.Get("/results", s.list)
	r.Post("/results", s.publish)
	r.Delete("/results/{marketId}", s.remove)
	return r
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req dto.Result
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out := s.store.Put(req)
	resultsPublished.Inc()
	s.log.Info("market resolved",
		zap.String("market_id", out.MarketID),
		zap.String("result_code", out.ResultCode),
		zap.String("settlement_mode", out.SettlementMode))
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "marketId")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
