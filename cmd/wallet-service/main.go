package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
	whttp "github.com/radieske/bet-settlement-engine/internal/wallet-service/http"
	"github.com/radieske/bet-settlement-engine/internal/wallet-service/ws"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wallet-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := db.Connect(cfg.StorageDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, dialect); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	balances, err := cache.NewBalanceCache(cache.BalanceCacheConfig{TTL: cfg.BalanceCacheTTL, Logger: log})
	if err != nil {
		log.Fatal("balance cache", zap.Error(err))
	}
	defer balances.Close()

	led := ledger.NewCachedStore(ledger.NewStore(conn, dialect), balances, ledger.NewRedisNotifier(rdb, cfg.BalanceChannel), log)

	// WebSocket: saldo e liquidações chegam via Redis pub/sub; mudanças feitas
	// por bet-service e settlement-service também invalidam o cache local
	hub := ws.NewHub(func(*http.Request) bool { return true }, log)
	ws.StartRedisSubscriber(ctx, rdb, hub, log, cfg.BalanceChannel, cfg.SettlementChannel, led.Invalidate)

	api := whttp.NewServer(log, led, http.HandlerFunc(hub.HandleWS), cfg.CurrencyDecimals)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.HealthCheck{Name: "db", Check: conn.PingContext},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	go func() {
		log.Info("wallet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
