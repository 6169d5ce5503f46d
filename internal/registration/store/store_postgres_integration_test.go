//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clubreg/internal/registration/models"
	"clubreg/pkg/platform/tx"
	"clubreg/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
	runner   *tx.Runner
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.runner = tx.NewRunner(s.postgres.DB, 0)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "participations"))
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	personID, eventID := uuid.New(), uuid.New()
	p := individual(personID, eventID, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.Save(s.ctx, p))

	found, err := s.store.FindByPersonAndEvent(s.ctx, personID, eventID)
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)
	s.Equal(personID, *found.PersonID)
	s.Nil(found.GroupID)
	s.Equal(models.StatusRegistered, found.Status)
	s.True(p.CreatedAt.Equal(found.CreatedAt))
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByPersonAndEvent(s.ctx, uuid.New(), uuid.New())
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestPersonXorGroupConstraint() {
	personID, groupID := uuid.New(), uuid.New()
	p := individual(personID, uuid.New(), time.Now())
	p.GroupID = &groupID
	s.Error(s.store.Save(s.ctx, p))
}

func (s *PostgresStoreSuite) TestLockRequiresTransaction() {
	s.Error(s.store.LockPersonEvent(s.ctx, uuid.New(), uuid.New()))
}

// Two transactions that check-then-insert under the advisory lock must
// produce exactly one row.
func (s *PostgresStoreSuite) TestAdvisoryLockSerializesCheckThenInsert() {
	personID, eventID := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
				if err := s.store.LockPersonEvent(ctx, personID, eventID); err != nil {
					return err
				}
				if _, err := s.store.FindByPersonAndEvent(ctx, personID, eventID); err == nil {
					return nil
				}
				return s.store.Save(ctx, individual(personID, eventID, time.Now()))
			})
		}()
	}
	wg.Wait()

	list, err := s.store.ListByEvent(s.ctx, eventID)
	s.Require().NoError(err)
	s.Len(list, 1)
}
