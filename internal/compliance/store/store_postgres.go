package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubreg/internal/compliance/models"
	"clubreg/pkg/domain"
	"clubreg/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = fmt.Errorf("document: %w", sentinel.ErrNotFound)

const documentColumns = `id, person_id, asd_id, document_type, issued_on, expires_on,
	recorded_at, expiry_announced_at, renewal_announced_at`

// PostgresStore persists documents with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ActiveDocuments(ctx context.Context, personID, asdID uuid.UUID) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE person_id = $1 AND asd_id = $2 AND superseded_at IS NULL
	`, personID, asdID)
	if err != nil {
		return nil, fmt.Errorf("query active documents: %w", err)
	}
	return collectDocuments(rows)
}

// Record supersedes the active instance and inserts doc in one transaction.
func (s *PostgresStore) Record(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE documents SET superseded_at = $4
			WHERE person_id = $1 AND asd_id = $2 AND document_type = $3 AND superseded_at IS NULL
		`, doc.PersonID, doc.AsdID, doc.Type.String(), doc.RecordedAt); err != nil {
			return fmt.Errorf("supersede document: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO documents (id, person_id, asd_id, document_type, issued_on, expires_on, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, doc.ID, doc.PersonID, doc.AsdID, doc.Type.String(), doc.IssuedOn, models.Day(doc.ExpiresOn), doc.RecordedAt); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) PendingExpiryAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE superseded_at IS NULL AND expiry_announced_at IS NULL AND expires_on < $1
		ORDER BY recorded_at
		LIMIT $2
	`, today, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending expiries: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PostgresStore) PendingRenewalAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE superseded_at IS NULL AND renewal_announced_at IS NULL AND expires_on >= $1
		ORDER BY recorded_at
		LIMIT $2
	`, today, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending renewals: %w", err)
	}
	return collectDocuments(rows)
}

// Announce locks the document row for the whole announcement. publish runs
// inside the transaction, so Record's supersede waits for it and a document
// superseded first is skipped without publishing.
func (s *PostgresStore) Announce(ctx context.Context, id uuid.UUID, kind models.Announcement, at time.Time, publish func(context.Context) error) (bool, error) {
	column, err := announcementColumn(kind)
	if err != nil {
		return false, err
	}
	var announced bool
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var superseded, done bool
		err := tx.QueryRow(ctx, `
			SELECT superseded_at IS NOT NULL, `+column+` IS NOT NULL
			FROM documents
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&superseded, &done)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if superseded || done {
			return nil
		}
		if err := publish(ctx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE documents SET `+column+` = $2 WHERE id = $1`, id, at); err != nil {
			return fmt.Errorf("mark document announced: %w", err)
		}
		announced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return announced, nil
}

func announcementColumn(kind models.Announcement) (string, error) {
	switch kind {
	case models.AnnounceExpiry:
		return "expiry_announced_at", nil
	case models.AnnounceRenewal:
		return "renewal_announced_at", nil
	default:
		return "", fmt.Errorf("unknown announcement %q", kind)
	}
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Document, error) {
		var (
			d       models.Document
			docType string
		)
		err := row.Scan(&d.ID, &d.PersonID, &d.AsdID, &docType, &d.IssuedOn, &d.ExpiresOn,
			&d.RecordedAt, &d.ExpiryAnnouncedAt, &d.RenewalAnnouncedAt)
		d.Type = domain.DocumentType(docType)
		return d, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}
