package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clubreg/internal/billing/idempotency"
	"clubreg/internal/billing/models"
	"clubreg/internal/platform/postgres"
	"clubreg/pkg/platform/tx"
)

const obligationColumns = `id, trigger_kind, trigger_id, person_id, group_id, asd_id, season_id, description, status, created_at`

// PostgresStore relies on UNIQUE (trigger_kind, trigger_id) to make the
// check-and-create atomic under concurrent redelivery.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ExistsForTrigger(ctx context.Context, trigger idempotency.Trigger) (bool, error) {
	var exists bool
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_obligations
			WHERE trigger_kind = $1 AND trigger_id = $2
		)
	`, trigger.Kind, trigger.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check obligation trigger: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateForTrigger(ctx context.Context, trigger idempotency.Trigger, o *models.Obligation) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO payment_obligations (`+obligationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, trigger.Kind, trigger.ID, nullUUID(o.PersonID), nullUUID(o.GroupID),
		o.AsdID, o.SeasonID, o.Description, string(o.Status), o.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateTrigger
	}
	if err != nil {
		return fmt.Errorf("create obligation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID uuid.UUID) ([]*models.Obligation, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+obligationColumns+`
		FROM payment_obligations
		WHERE person_id = $1
		ORDER BY created_at
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Obligation, 0)
	for rows.Next() {
		var (
			o             models.Obligation
			kind, status  string
			person, group uuid.NullUUID
		)
		if err := rows.Scan(&o.ID, &kind, &o.TriggerID, &person, &group, &o.AsdID, &o.SeasonID,
			&o.Description, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		o.TriggerKind = models.TriggerKind(kind)
		o.Status = models.ObligationStatus(status)
		if person.Valid {
			id := person.UUID
			o.PersonID = &id
		}
		if group.Valid {
			id := group.UUID
			o.GroupID = &id
		}
		o.CreatedAt = o.CreatedAt.UTC()
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return out, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
