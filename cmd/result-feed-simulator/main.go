package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	fhttp "github.com/radieske/bet-settlement-engine/internal/result-feed/http"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

// Catálogo fixo de mercados simulados (1x2)
var catalog = []fhttp.Market{
	{ID: "MATCH_001", Selections: []string{"HOME", "DRAW", "AWAY"}},
	{ID: "MATCH_002", Selections: []string{"HOME", "DRAW", "AWAY"}},
	{ID: "MATCH_003", Selections: []string{"HOME", "DRAW", "AWAY"}},
	{ID: "MATCH_004", Selections: []string{"HOME", "DRAW", "AWAY"}},
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "result-feed-simulator"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := fhttp.NewStore()
	if cfg.FeedAutoResolve > 0 {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		go store.AutoResolve(ctx, cfg.FeedAutoResolve, catalog, rng)
		log.Info("auto-resolve enabled", zap.Duration("interval", cfg.FeedAutoResolve))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           fhttp.NewServer(log, store).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	go func() {
		log.Info("result-feed-simulator listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
