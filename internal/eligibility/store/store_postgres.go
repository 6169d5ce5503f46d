package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubreg/internal/eligibility/models"
	"clubreg/pkg/domain"
	"clubreg/pkg/platform/tx"

	"github.com/lib/pq"
)

const entryColumns = `person_id, asd_id, eligible, blocking_documents, source, last_updated_at`

// PostgresStore persists the eligibility cache. Incremental mutations lock the
// row with SELECT ... FOR UPDATE inside a transaction so concurrent events and
// sync overwrites for one key serialize.
type PostgresStore struct {
	db     *sql.DB
	runner *tx.Runner
	opts   options
}

func NewPostgres(db *sql.DB, opts ...Option) *PostgresStore {
	return &PostgresStore{
		db:     db,
		runner: tx.NewRunner(db, 0),
		opts:   buildOptions(opts),
	}
}

func (s *PostgresStore) Get(ctx context.Context, key models.Key) (*models.CacheEntry, error) {
	start := time.Now()
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM eligibility_cache
		WHERE person_id = $1 AND asd_id = $2
	`, key.PersonID, key.AsdID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.opts.metrics.RecordMiss(start)
		}
		return nil, err
	}
	s.opts.metrics.RecordHit(start)
	return entry, nil
}

// OverwriteFromSync upserts the sync result in one statement. The update is
// skipped when the stored entry is newer than checkedAt; the stored entry is
// then returned unchanged.
func (s *PostgresStore) OverwriteFromSync(ctx context.Context, key models.Key, eligible bool, blockers []string, checkedAt time.Time) (*models.CacheEntry, error) {
	entry := models.NewSyncEntry(key, eligible, blockers, s.opts.now())
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO eligibility_cache (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (person_id, asd_id) DO UPDATE SET
			eligible = EXCLUDED.eligible,
			blocking_documents = EXCLUDED.blocking_documents,
			source = EXCLUDED.source,
			last_updated_at = EXCLUDED.last_updated_at
		WHERE eligibility_cache.last_updated_at <= $7
		RETURNING `+entryColumns,
		key.PersonID, key.AsdID, entry.Eligible, pq.Array(entry.BlockingDocuments),
		string(entry.Source), entry.LastUpdatedAt, checkedAt,
	)
	stored, err := scanEntry(row)
	if errors.Is(err, ErrNotFound) {
		s.opts.metrics.RecordStaleSyncSkip()
		return s.Get(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("overwrite eligibility cache: %w", err)
	}
	s.opts.metrics.RecordMutation(string(stored.Source))
	return stored, nil
}

func (s *PostgresStore) MarkIneligible(ctx context.Context, key models.Key, docType, reason string) (*models.CacheEntry, error) {
	label := domain.Label(docType, reason)
	return s.mutate(ctx, key, true, func(current models.CacheEntry) models.CacheEntry {
		return current.WithBlocker(label, s.opts.now())
	})
}

// RemoveBlocker returns (nil, nil) when no entry exists.
func (s *PostgresStore) RemoveBlocker(ctx context.Context, key models.Key, docType string) (*models.CacheEntry, error) {
	return s.mutate(ctx, key, false, func(current models.CacheEntry) models.CacheEntry {
		return current.WithoutBlockerType(docType, s.opts.now())
	})
}

func (s *PostgresStore) mutate(ctx context.Context, key models.Key, create bool, apply func(models.CacheEntry) models.CacheEntry) (*models.CacheEntry, error) {
	var out *models.CacheEntry
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := tx.Exec(ctx, s.db)

		current, err := s.lockEntry(ctx, exec, key)
		if errors.Is(err, ErrNotFound) {
			if !create {
				return nil
			}
			// Seed the row so a concurrent creator blocks on it instead of
			// racing the insert.
			empty := models.EmptyEntry(key)
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO eligibility_cache (`+entryColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (person_id, asd_id) DO NOTHING
			`, key.PersonID, key.AsdID, empty.Eligible, pq.Array(empty.BlockingDocuments),
				string(empty.Source), s.opts.now()); err != nil {
				return fmt.Errorf("seed eligibility cache entry: %w", err)
			}
			current, err = s.lockEntry(ctx, exec, key)
		}
		if err != nil {
			return err
		}

		next := apply(*current)
		if _, err := exec.ExecContext(ctx, `
			UPDATE eligibility_cache
			SET eligible = $3, blocking_documents = $4, source = $5, last_updated_at = $6
			WHERE person_id = $1 AND asd_id = $2
		`, key.PersonID, key.AsdID, next.Eligible, pq.Array(next.BlockingDocuments),
			string(next.Source), next.LastUpdatedAt); err != nil {
			return fmt.Errorf("update eligibility cache entry: %w", err)
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.opts.metrics.RecordMutation(string(out.Source))
	}
	return out, nil
}

func (s *PostgresStore) lockEntry(ctx context.Context, exec tx.Executor, key models.Key) (*models.CacheEntry, error) {
	row := exec.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM eligibility_cache
		WHERE person_id = $1 AND asd_id = $2
		FOR UPDATE
	`, key.PersonID, key.AsdID)
	return scanEntry(row)
}

func scanEntry(row *sql.Row) (*models.CacheEntry, error) {
	var (
		e        models.CacheEntry
		blockers []string
		source   string
	)
	if err := row.Scan(&e.PersonID, &e.AsdID, &e.Eligible, pq.Array(&blockers), &source, &e.LastUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan eligibility cache entry: %w", err)
	}
	if blockers == nil {
		blockers = []string{}
	}
	e.BlockingDocuments = blockers
	e.Source = models.ParseSource(source)
	return &e, nil
}
