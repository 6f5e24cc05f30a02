package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement-notifier/consumer"
	"github.com/radieske/bet-settlement-engine/internal/settlement-notifier/pubsub"
	"github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

var (
	consumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_notifier_consumed_total",
		Help: "Mensagens bet_settled consumidas",
	})
	broadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_notifier_broadcast_total",
		Help: "Liquidações repassadas ao Redis pub/sub",
	})
	deadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_notifier_dlq_total",
		Help: "Mensagens enviadas para a DLQ",
	})
	errorsBy = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_notifier_errors_total",
		Help: "Erros por fase do processamento",
	}, []string{"stage"})
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-notifier-worker"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetSettled, cfg.NotifierConsumerGroup)
	defer reader.Close()

	var dlq *kafka.Writer
	if cfg.TopicBetSettledDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettledDLQ)
		defer dlq.Close()
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	settled := pubsub.NewSettledPublisher(rdb, cfg.SettlementChannel)
	p := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Broadcaster: settled,
		Retries:     3,
		Backoff:     300 * time.Millisecond,

		OnConsumed:  func() { consumed.Inc() },
		OnBroadcast: func() { broadcast.Inc() },
		OnDLQ:       func() { deadLettered.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if dlq != nil {
		p.DLQ = dlq
	}

	log.Info("settlement-notifier-worker started",
		zap.String("consume", cfg.TopicBetSettled),
		zap.String("channel", settled.Channel()),
	)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
