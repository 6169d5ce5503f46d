package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	billingconsumer "clubreg/internal/billing/consumer"
	"clubreg/internal/billing/handler"
	"clubreg/internal/billing/idempotency"
	billingmetrics "clubreg/internal/billing/metrics"
	"clubreg/internal/billing/models"
	"clubreg/internal/billing/store"
	"clubreg/internal/platform/config"
	"clubreg/internal/platform/httpserver"
	"clubreg/internal/platform/kafka/admin"
	"clubreg/internal/platform/kafka/consumer"
	"clubreg/internal/platform/kafka/producer"
	"clubreg/internal/platform/logger"
	"clubreg/internal/platform/metrics"
	"clubreg/internal/platform/postgres"
	"clubreg/internal/platform/redis"
	"clubreg/migrations"
)

const attemptTTL = 24 * time.Hour

type obligationStore interface {
	idempotency.EffectStore[*models.Obligation]
	handler.Store
}

// main wires the billing service: one payment obligation per trigger event.
func main() {
	cfg := config.BillingFromEnv()
	log := logger.New("billing", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("billing service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Billing, log *slog.Logger) error {
	var (
		obligations obligationStore
		checks      []httpserver.Check
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(db, "billing", migrations.Billing); err != nil {
			return err
		}
		obligations = store.NewPostgres(db)
		checks = append(checks, httpserver.Check{Name: "postgres", Ping: db.PingContext})
	} else {
		log.Warn("DATABASE_URL not set, obligations are kept in memory")
		obligations = store.NewInMemoryStore()
	}

	applier, err := idempotency.NewApplier[*models.Obligation](obligations, log)
	if err != nil {
		return err
	}

	var triggers *consumer.Consumer
	if cfg.Kafka.Enabled() {
		c, dlq, closeTriggers, err := newTriggerConsumer(ctx, cfg.Server, applier, log)
		if err != nil {
			return err
		}
		defer closeTriggers()
		triggers = c
		checks = append(checks, httpserver.Check{Name: "kafka", Ping: dlq.Ping})
	} else {
		log.Warn("KAFKA_BROKERS not set, no trigger events will be consumed")
	}

	router := httpserver.NewRouter(log, metrics.New("billing"), checks...)
	handler.New(obligations, log).Register(router)
	srv := httpserver.New(cfg.Addr, "billing", router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	if triggers != nil {
		g.Go(func() error {
			return triggers.Run(gctx)
		})
	}
	return g.Wait()
}

// newTriggerConsumer also returns its dead-letter producer, which doubles as
// the broker readiness check.
func newTriggerConsumer(ctx context.Context, cfg config.Server, applier *idempotency.Applier[*models.Obligation], log *slog.Logger) (*consumer.Consumer, *producer.Producer, func(), error) {
	group := cfg.Kafka.ConsumerGroup + ".obligations"

	router := consumer.NewRouter(log)
	billingconsumer.NewObligationHandler(applier, billingmetrics.New(), log).Register(router)

	if err := admin.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicPartitions, cfg.Kafka.ReplicationFactor, log,
		router.Topics()...,
	); err != nil {
		return nil, nil, nil, err
	}

	dlq, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		return nil, nil, nil, err
	}

	var attempts consumer.AttemptTracker = consumer.NewMemoryAttempts(group)
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		dlq.Close()
		return nil, nil, nil, err
	}
	if client != nil {
		attempts = consumer.NewRedisAttempts(client.Client, group, attemptTTL)
	} else {
		log.Warn("REDIS_URL not set, redelivery attempts are counted per instance")
	}

	policy := consumer.RetryPolicy{
		MaxAttempts: cfg.Consumer.MaxAttempts,
		BackoffBase: cfg.Consumer.BackoffBase,
		BackoffMax:  cfg.Consumer.BackoffMax,
	}
	dispatcher := consumer.NewDispatcher(router, attempts, dlq, policy, consumer.NewMetrics(group), log)
	c, err := consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Group:   group,
		Topics:  router.Topics(),
		Workers: cfg.Consumer.Workers,
	}, dispatcher, log)

	closeAll := func() {
		if c != nil {
			c.Close()
		}
		dlq.Close()
		if client != nil {
			_ = client.Close()
		}
	}
	if err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	return c, dlq, closeAll, nil
}
