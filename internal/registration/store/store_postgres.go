package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubreg/internal/registration/models"
	"clubreg/pkg/platform/tx"

	"github.com/google/uuid"
)

const participationColumns = `id, event_id, person_id, group_id, asd_id, season_id, categoria, status, created_at`

// PostgresStore persists participations with database/sql. Statements run on
// the transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByPersonAndEvent(ctx context.Context, personID, eventID uuid.UUID) (*models.Participation, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+participationColumns+`
		FROM participations
		WHERE person_id = $1 AND event_id = $2
		ORDER BY created_at
		LIMIT 1
	`, personID, eventID)
	p, err := scanParticipation(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LockPersonEvent takes a transaction-scoped advisory lock on (person, event).
// It must run inside a transaction; the lock is released on commit or rollback.
func (s *PostgresStore) LockPersonEvent(ctx context.Context, personID, eventID uuid.UUID) error {
	sqlTx, ok := tx.From(ctx)
	if !ok {
		return errors.New("lock participation: transaction required")
	}
	_, err := sqlTx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		"participation:"+personID.String()+":"+eventID.String(),
	)
	if err != nil {
		return fmt.Errorf("lock participation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Participation) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO participations (`+participationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.EventID, nullUUID(p.PersonID), nullUUID(p.GroupID), p.AsdID, p.SeasonID,
		p.Categoria, string(p.Status), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save participation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Participation, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+participationColumns+`
		FROM participations
		WHERE event_id = $1
		ORDER BY created_at
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipation(row scanner) (*models.Participation, error) {
	var (
		p        models.Participation
		personID uuid.NullUUID
		groupID  uuid.NullUUID
		status   string
	)
	err := row.Scan(&p.ID, &p.EventID, &personID, &groupID, &p.AsdID, &p.SeasonID,
		&p.Categoria, &status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan participation: %w", err)
	}
	if personID.Valid {
		id := personID.UUID
		p.PersonID = &id
	}
	if groupID.Valid {
		id := groupID.UUID
		p.GroupID = &id
	}
	p.Status = models.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
