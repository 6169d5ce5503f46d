package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"clubreg/internal/compliance/handler"
	compliancemetrics "clubreg/internal/compliance/metrics"
	"clubreg/internal/compliance/service"
	"clubreg/internal/compliance/store"
	"clubreg/internal/platform/config"
	"clubreg/internal/platform/httpserver"
	"clubreg/internal/platform/kafka/admin"
	"clubreg/internal/platform/kafka/producer"
	"clubreg/internal/platform/logger"
	"clubreg/internal/platform/metrics"
	"clubreg/internal/platform/postgres"
	"clubreg/internal/platform/servicetoken"
	"clubreg/migrations"
	"clubreg/pkg/events"
	adminmw "clubreg/pkg/platform/middleware/admin"
	"clubreg/pkg/platform/middleware/auth"
)

// main wires the compliance service: document storage, the eligibility
// endpoint, and the sweep that announces expiries and renewals.
func main() {
	cfg := config.ComplianceFromEnv()
	log := logger.New("compliance", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("compliance service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Compliance, log *slog.Logger) error {
	documents, closeStore, err := openDocumentStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc, err := service.New(documents, publisher,
		service.WithLogger(log),
		service.WithMetrics(compliancemetrics.New()),
		service.WithWarningWindow(cfg.ExpiryWarningWindow),
	)
	if err != nil {
		return err
	}
	h := handler.New(svc, log)
	tokens := servicetoken.New(cfg.Token.SigningKey, "compliance")

	var checks []httpserver.Check
	if p, ok := publisher.(*producer.Producer); ok {
		checks = append(checks, httpserver.Check{Name: "kafka", Ping: p.Ping})
	}
	router := httpserver.NewRouter(log, metrics.New("compliance"), checks...)
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireServiceToken(tokens, log, "competition"))
		h.Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, "compliance", router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	return g.Wait()
}

func openDocumentStore(ctx context.Context, dsn string, log *slog.Logger) (service.DocumentStore, func(), error) {
	if dsn == "" {
		log.Warn("DATABASE_URL not set, documents are kept in memory")
		return store.NewInMemoryStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	err = postgres.Migrate(db, "compliance", migrations.Compliance)
	_ = db.Close()
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.OpenPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(pool), pool.Close, nil
}

func openPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (service.EventPublisher, func(), error) {
	if !cfg.Enabled() {
		log.Warn("KAFKA_BROKERS not set, document events are only logged")
		return producer.NewLogOnly(log), func() {}, nil
	}
	if err := admin.EnsureTopics(ctx, cfg.Brokers, cfg.TopicPartitions, cfg.ReplicationFactor, log,
		events.TopicComplianceDocuments,
	); err != nil {
		return nil, nil, err
	}
	p, err := producer.New(cfg.Brokers, log)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
