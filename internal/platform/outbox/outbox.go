// Package outbox stores events in the same transaction as the state change
// that produced them and relays them to the broker afterwards.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"clubreg/pkg/events"
	"clubreg/pkg/platform/tx"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Writer appends envelopes to the outbox table using the transaction carried
// by ctx, so the event commits or rolls back with the caller's writes.
type Writer struct {
	db *sql.DB
}

func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// Publish enqueues env for topic.
func (w *Writer) Publish(ctx context.Context, topic string, env events.Envelope) error {
	if _, ok := tx.From(ctx); !ok {
		return fmt.Errorf("outbox write for %s requires a transaction", env.Type)
	}
	value, err := env.Marshal()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, w.db).ExecContext(ctx, `
		INSERT INTO outbox (id, topic, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, env.ID, topic, env.AggregateID, string(env.Type), value, env.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Publisher delivers one encoded record to the broker.
type Publisher interface {
	PublishRaw(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type entry struct {
	seq         int64
	topic       string
	aggregateID string
	eventType   string
	payload     []byte
}

// Relay drains unpublished outbox rows in insertion order.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	pending   prometheus.Gauge
	published prometheus.Counter
}

// Option configures a Relay.
type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics registers relay gauges on the default registry.
func WithMetrics() Option {
	return func(r *Relay) {
		r.pending = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clubreg_outbox_last_batch_size",
			Help: "Rows read by the most recent outbox relay batch",
		})
		r.published = promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubreg_outbox_published_total",
			Help: "Outbox rows published to the broker",
		})
	}
}

func NewRelay(db *sql.DB, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		publisher: publisher,
		interval:  500 * time.Millisecond,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run flushes on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox flush failed", "error", err)
			}
		}
	}
}

// Flush publishes one batch and returns how many rows were marked published.
// Publishing stops at the first broker error so rows are never delivered out
// of order; the remaining rows are retried on the next flush.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	rows, err := sqlTx.QueryContext(ctx, `
		SELECT seq, topic, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox batch: %w", err)
	}
	var batch []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.seq, &e.topic, &e.aggregateID, &e.eventType, &e.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox batch: %w", err)
	}
	if r.pending != nil {
		r.pending.Set(float64(len(batch)))
	}
	if len(batch) == 0 {
		return 0, nil
	}

	var (
		done       []int64
		publishErr error
	)
	for _, e := range batch {
		headers := map[string]string{"x-event-type": e.eventType}
		if err := r.publisher.PublishRaw(ctx, e.topic, []byte(e.aggregateID), e.payload, headers); err != nil {
			publishErr = fmt.Errorf("publish outbox entry %d: %w", e.seq, err)
			break
		}
		done = append(done, e.seq)
	}

	if len(done) > 0 {
		if _, err := sqlTx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE seq = ANY($2)`,
			time.Now().UTC(), pq.Array(done),
		); err != nil {
			return 0, fmt.Errorf("mark outbox published: %w", err)
		}
		if err := sqlTx.Commit(); err != nil {
			return 0, fmt.Errorf("commit outbox batch: %w", err)
		}
		if r.published != nil {
			r.published.Add(float64(len(done)))
		}
	}
	return len(done), publishErr
}
