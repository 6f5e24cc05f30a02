// settlectl é a ferramenta de operação do engine de liquidação: aplica o
// schema, liquida mercados manualmente, roda um ciclo do scheduler, consulta
// saldos, reconcilia o ledger e emite tokens de admin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/bets"
	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/settlement-service/producer"
	"github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:           "settlectl",
	Short:         "Operate the bet settlement engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// .env é opcional
		_ = godotenv.Load()
	},
}

var (
	withRedisLock bool
	withPublish   bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVar(&withRedisLock, "redis-lock", true,
		"take the distributed market lock in Redis (keeps the CLI from racing the service)")
	rootCmd.PersistentFlags().BoolVar(&withPublish, "publish", false,
		"publish bet_settled/market_settled to Kafka")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// deps agrupa o que os subcomandos precisam; close libera tudo
type deps struct {
	cfg      config.Config
	log      *zap.Logger
	dialect  db.Dialect
	store    *ledger.Store
	ledger   *ledger.CachedStore
	registry *bets.Registry
	markets  *settlement.MarketRepo
	engine   *settlement.Engine
	closers  []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlectl"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, level)
	if err != nil {
		return nil, err
	}

	conn, dialect, err := db.Connect(cfg.StorageDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, log: log, dialect: dialect}
	d.closers = append(d.closers, func() { _ = conn.Close() }, func() { _ = log.Sync() })

	if err := db.Migrate(ctx, conn, dialect); err != nil {
		d.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	d.store = ledger.NewStore(conn, dialect)
	d.registry = bets.NewRegistry(conn, cfg.CurrencyDecimals)
	d.markets = settlement.NewMarketRepo(conn)

	var notifier ledger.Notifier
	locker := settlement.ChainLocker{settlement.NewLocalLocker()}
	if withRedisLock {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("%w (use --redis-lock=false when the service is not running)", err)
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		locker = append(locker, cache.NewRedisLocker(rdb, "settlement:market:", cfg.MarketLockTTL))
		notifier = ledger.NewRedisNotifier(rdb, cfg.BalanceChannel)
	}
	d.ledger = ledger.NewCachedStore(d.store, nil, notifier, log)

	opts := []settlement.Option{
		settlement.WithLocker(locker),
		settlement.WithMarketRecorder(d.markets),
		settlement.WithCurrencyDecimals(cfg.CurrencyDecimals),
	}
	if withPublish {
		pub := producer.NewKafkaPublisher(
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled),
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketSettled),
		)
		d.closers = append(d.closers, func() { _ = pub.Close() })
		opts = append(opts, settlement.WithPublisher(pub))
	}
	d.engine = settlement.NewEngine(d.registry, d.ledger, db.Transactor{DB: conn}, log, opts...)
	return d, nil
}
