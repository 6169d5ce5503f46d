package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	eligibilityconsumer "clubreg/internal/eligibility/consumer"
	eligibilitymetrics "clubreg/internal/eligibility/metrics"
	eligibilitystore "clubreg/internal/eligibility/store"
	"clubreg/internal/platform/config"
	"clubreg/internal/platform/httpserver"
	"clubreg/internal/platform/kafka/admin"
	"clubreg/internal/platform/kafka/consumer"
	"clubreg/internal/platform/kafka/producer"
	"clubreg/internal/platform/logger"
	"clubreg/internal/platform/metrics"
	"clubreg/internal/platform/outbox"
	"clubreg/internal/platform/postgres"
	"clubreg/internal/platform/redis"
	"clubreg/internal/platform/servicetoken"
	"clubreg/internal/registration/adapters"
	"clubreg/internal/registration/handler"
	registrationmetrics "clubreg/internal/registration/metrics"
	"clubreg/internal/registration/service"
	registrationstore "clubreg/internal/registration/store"
	"clubreg/migrations"
	"clubreg/pkg/events"
	"clubreg/pkg/platform/circuit"
	"clubreg/pkg/platform/tx"
)

const (
	txTimeout  = 5 * time.Second
	attemptTTL = 24 * time.Hour
)

// broker is satisfied by both the Kafka producer and its log-only stand-in.
type broker interface {
	service.EventPublisher
	outbox.Publisher
}

type cacheStore interface {
	service.EligibilityCache
	eligibilityconsumer.CacheWriter
}

// main wires the competition service: the eligibility cache and its consumer,
// the registration gate, and the outbox relay.
func main() {
	cfg := config.CompetitionFromEnv()
	log := logger.New("competition", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("competition service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Competition, log *slog.Logger) error {
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(db, "competition", migrations.Competition); err != nil {
			return err
		}
	} else {
		log.Warn("DATABASE_URL not set, cache and participations are kept in memory")
	}

	out, dlq, closeBroker, err := openBroker(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	cacheMetrics := eligibilitymetrics.New()
	gateMetrics := registrationmetrics.New()

	var (
		cache          cacheStore
		participations service.ParticipationStore
		runner         service.TxRunner
		publisher      service.EventPublisher
		relay          *outbox.Relay
	)
	if db != nil {
		cache = eligibilitystore.NewPostgres(db, eligibilitystore.WithMetrics(cacheMetrics))
		participations = registrationstore.NewPostgres(db)
		runner = tx.NewRunner(db, txTimeout)
		publisher = outbox.NewWriter(db)
		relay = outbox.NewRelay(db, out,
			outbox.WithInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithLogger(log),
			outbox.WithMetrics(),
		)
	} else {
		cache = eligibilitystore.NewInMemoryStore(eligibilitystore.WithMetrics(cacheMetrics))
		participations = registrationstore.NewInMemoryStore()
		runner = tx.Nop{}
		publisher = out
	}

	tokens := servicetoken.NewSource(servicetoken.New(cfg.Token.SigningKey, "compliance"), "competition", cfg.Token.TTL)
	breaker := circuit.New("compliance",
		circuit.WithFailureThreshold(cfg.BreakerFailures),
		circuit.WithSuccessThreshold(cfg.BreakerSuccesses),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	verifier, err := adapters.NewComplianceClient(cfg.ComplianceBaseURL, tokens,
		adapters.WithTimeout(cfg.ComplianceTimeout),
		adapters.WithBreaker(breaker),
		adapters.WithMetrics(gateMetrics),
		adapters.WithLogger(log),
	)
	if err != nil {
		return err
	}

	gateOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(gateMetrics),
		service.WithRetryAfter(cfg.ComplianceRetryIn),
	}
	if db == nil {
		gateOpts = append(gateOpts, service.WithDirectPublish())
	}
	gate, err := service.New(cache, verifier, participations, publisher, runner, gateOpts...)
	if err != nil {
		return err
	}

	var checks []httpserver.Check
	if db != nil {
		checks = append(checks, httpserver.Check{Name: "postgres", Ping: db.PingContext})
	}
	if p, ok := out.(*producer.Producer); ok {
		checks = append(checks, httpserver.Check{Name: "kafka", Ping: p.Ping})
	}
	router := httpserver.NewRouter(log, metrics.New("competition"), checks...)
	handler.New(gate, log).Register(router)
	srv := httpserver.New(cfg.Addr, "competition", router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if dlq != nil {
		attempts, closeAttempts, err := attemptTracker(ctx, cfg.Redis, documentsGroup(cfg.Kafka), log)
		if err != nil {
			return err
		}
		defer closeAttempts()

		documents, err := newDocumentConsumer(cfg.Server, cache, attempts, dlq, log)
		if err != nil {
			return err
		}
		defer documents.Close()
		g.Go(func() error {
			return documents.Run(gctx)
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, cache updates only arrive through cold verification")
	}

	return g.Wait()
}

// openBroker returns the publisher for outgoing events and, when a broker is
// configured, the dead-letter sink for the document consumer.
func openBroker(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (broker, consumer.DeadLetterer, func(), error) {
	if !cfg.Enabled() {
		return producer.NewLogOnly(log), nil, func() {}, nil
	}
	if err := admin.EnsureTopics(ctx, cfg.Brokers, cfg.TopicPartitions, cfg.ReplicationFactor, log,
		events.TopicComplianceDocuments,
		events.TopicCompetitionParticipations,
	); err != nil {
		return nil, nil, nil, err
	}
	p, err := producer.New(cfg.Brokers, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, p, p.Close, nil
}

func documentsGroup(cfg config.KafkaConfig) string {
	return cfg.ConsumerGroup + ".eligibility-cache"
}

func newDocumentConsumer(cfg config.Server, cache eligibilityconsumer.CacheWriter, attempts consumer.AttemptTracker, dlq consumer.DeadLetterer, log *slog.Logger) (*consumer.Consumer, error) {
	group := documentsGroup(cfg.Kafka)

	router := consumer.NewRouter(log)
	router.Register(events.TopicComplianceDocuments, eligibilityconsumer.NewDocumentEventHandler(cache, log))

	dispatcher := consumer.NewDispatcher(router, attempts, dlq, retryPolicy(cfg.Consumer), consumer.NewMetrics(group), log)
	return consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Group:   group,
		Topics:  router.Topics(),
		Workers: cfg.Consumer.Workers,
	}, dispatcher, log)
}

func attemptTracker(ctx context.Context, cfg config.RedisConfig, group string, log *slog.Logger) (consumer.AttemptTracker, func(), error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, redelivery attempts are counted per instance")
		return consumer.NewMemoryAttempts(group), func() {}, nil
	}
	return consumer.NewRedisAttempts(client.Client, group, attemptTTL), func() { _ = client.Close() }, nil
}

func retryPolicy(cfg config.ConsumerConfig) consumer.RetryPolicy {
	return consumer.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	}
}
