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

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/scheduler"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
	shttp "github.com/radieske/bet-settlement-engine/internal/settlement-service/http"
	"github.com/radieske/bet-settlement-engine/internal/settlement-service/producer"
	"github.com/radieske/bet-settlement-engine/internal/shared/auth"
	"github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-service"
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

	// banco: Postgres em produção, SQLite local
	conn, dialect, err := db.Connect(cfg.StorageDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, dialect); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}
	log.Info("db ready", zap.String("driver", string(dialect)))

	// Redis: lock distribuído por mercado + pub/sub de saldo
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

	// Kafka: eventos pós-commit
	publisher := producer.NewKafkaPublisher(
		kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled),
		kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketSettled),
	)
	defer publisher.Close()

	// deps
	store := ledger.NewStore(conn, dialect)
	led := ledger.NewCachedStore(store, balances, ledger.NewRedisNotifier(rdb, cfg.BalanceChannel), log)
	registry := bets.NewRegistry(conn, cfg.CurrencyDecimals)
	markets := settlement.NewMarketRepo(conn)

	// lock local primeiro: só uma goroutine por processo disputa a chave no Redis
	locker := settlement.ChainLocker{
		settlement.NewLocalLocker(),
		cache.NewRedisLocker(rdb, "settlement:market:", cfg.MarketLockTTL),
	}

	engine := settlement.NewEngine(registry, led, db.Transactor{DB: conn}, log,
		settlement.WithLocker(locker),
		settlement.WithPublisher(publisher),
		settlement.WithMarketRecorder(markets),
		settlement.WithCurrencyDecimals(cfg.CurrencyDecimals),
	)

	sched := scheduler.New(
		scheduler.NewHTTPSource(cfg.ResultFeedURL, cfg.ResultFeedTimeout),
		engine, markets,
		scheduler.Config{Interval: cfg.SettlementInterval, Workers: cfg.SettlementWorkers},
		log,
	)

	keys, err := auth.ParseKeys(cfg.AdminJWTKeys)
	if err != nil {
		log.Fatal("ADMIN_JWT_KEYS", zap.Error(err))
	}
	if len(keys) == 0 {
		log.Warn("ADMIN_JWT_KEYS empty: admin API will reject every request")
	}

	api := shttp.NewServer(log, engine, sched,
		settlement.NewReconciler(registry, store),
		auth.NewVerifier(keys, auth.ScopeSettlementAdmin))
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
		if err := sched.Start(ctx); err != nil {
			log.Error("scheduler", zap.Error(err))
		}
	}()

	go func() {
		log.Info("settlement-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = apiSrv.Shutdown(shutdownCtx)
	// espera o ciclo em andamento: nenhuma aposta fica liquidada pela metade
	sched.Stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
