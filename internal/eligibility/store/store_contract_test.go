package store

import (
	"context"
	"sync"
	"time"

	"clubreg/internal/eligibility/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// cacheStore is the behavior shared by the memory and Postgres stores.
type cacheStore interface {
	Get(ctx context.Context, key models.Key) (*models.CacheEntry, error)
	OverwriteFromSync(ctx context.Context, key models.Key, eligible bool, blockers []string, checkedAt time.Time) (*models.CacheEntry, error)
	MarkIneligible(ctx context.Context, key models.Key, docType, reason string) (*models.CacheEntry, error)
	RemoveBlocker(ctx context.Context, key models.Key, docType string) (*models.CacheEntry, error)
}

// cacheContractSuite runs the same assertions against any cacheStore.
// Embedders set newStore.
type cacheContractSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	clock    func() time.Time
	newStore func(opts ...Option) cacheStore
	store    cacheStore
	key      models.Key
}

func (s *cacheContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return s.now }
	s.store = s.newStore(WithClock(func() time.Time { return s.clock() }))
	s.key = models.Key{PersonID: uuid.New(), AsdID: uuid.New()}
}

func (s *cacheContractSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, s.key)
	s.ErrorIs(err, ErrNotFound)
}

func (s *cacheContractSuite) TestOverwriteFromSyncThenGet() {
	_, err := s.store.OverwriteFromSync(s.ctx, s.key, false, []string{"MEDICAL_CERT [MISSING]"}, s.now)
	s.Require().NoError(err)

	entry, err := s.store.Get(s.ctx, s.key)
	s.Require().NoError(err)
	s.False(entry.Eligible)
	s.Equal([]string{"MEDICAL_CERT [MISSING]"}, entry.BlockingDocuments)
	s.Equal(models.SourceSyncCheck, entry.Source)
	s.True(entry.LastUpdatedAt.Equal(s.now))
}

func (s *cacheContractSuite) TestOverwriteReplacesOlderEntry() {
	_, err := s.store.MarkIneligible(s.ctx, s.key, "MEDICAL_CERT", "EXPIRED on 2026-03-01")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Minute)
	entry, err := s.store.OverwriteFromSync(s.ctx, s.key, true, nil, s.now)
	s.Require().NoError(err)

	s.True(entry.Eligible)
	s.Empty(entry.BlockingDocuments)
	s.Equal(models.SourceSyncCheck, entry.Source)
}

func (s *cacheContractSuite) TestOverwriteSkipsEntryUpdatedAfterCheckStarted() {
	checkedAt := s.now
	s.now = s.now.Add(time.Second)
	_, err := s.store.MarkIneligible(s.ctx, s.key, "MEDICAL_CERT", "EXPIRED on 2026-03-01")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Second)
	entry, err := s.store.OverwriteFromSync(s.ctx, s.key, true, nil, checkedAt)
	s.Require().NoError(err)

	s.False(entry.Eligible, "the newer expiry must survive a stale sync result")
	s.Equal(models.SourceDocumentExpired, entry.Source)
}

func (s *cacheContractSuite) TestMarkIneligibleTwiceYieldsOneBlocker() {
	for range 2 {
		_, err := s.store.MarkIneligible(s.ctx, s.key, "MEDICAL_CERT", "EXPIRED on 2026-03-01")
		s.Require().NoError(err)
	}

	entry, err := s.store.Get(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal([]string{"MEDICAL_CERT [EXPIRED on 2026-03-01]"}, entry.BlockingDocuments)
	s.False(entry.Eligible)
	s.Equal(models.SourceDocumentExpired, entry.Source)
}

func (s *cacheContractSuite) TestMarkThenRemoveRestoresEligibility() {
	_, err := s.store.MarkIneligible(s.ctx, s.key, "MEDICAL_CERT", "EXPIRED on 2026-03-01")
	s.Require().NoError(err)

	entry, err := s.store.RemoveBlocker(s.ctx, s.key, "MEDICAL_CERT")
	s.Require().NoError(err)
	s.Require().NotNil(entry)
	s.True(entry.Eligible)
	s.Empty(entry.BlockingDocuments)
	s.Equal(models.SourceDocumentRenewed, entry.Source)
}

func (s *cacheContractSuite) TestRemoveKeepsOtherTypes() {
	_, err := s.store.OverwriteFromSync(s.ctx, s.key, false,
		[]string{"MEDICAL_CERT [MISSING]", "FEDERATION_CARD [MISSING]"}, s.now)
	s.Require().NoError(err)

	entry, err := s.store.RemoveBlocker(s.ctx, s.key, "MEDICAL_CERT")
	s.Require().NoError(err)
	s.False(entry.Eligible)
	s.Equal([]string{"FEDERATION_CARD [MISSING]"}, entry.BlockingDocuments)
}

func (s *cacheContractSuite) TestRemoveBlockerForUnknownKeyCreatesNothing() {
	entry, err := s.store.RemoveBlocker(s.ctx, s.key, "MEDICAL_CERT")
	s.Require().NoError(err)
	s.Nil(entry)

	_, err = s.store.Get(s.ctx, s.key)
	s.ErrorIs(err, ErrNotFound)
}

func (s *cacheContractSuite) TestConcurrentMarksDoNotLoseUpdates() {
	types := []string{"MEDICAL_CERT", "FEDERATION_CARD", "MEDICAL_CERT_BASIC", "ASD_MEMBERSHIP_CARD"}
	var wg sync.WaitGroup
	for _, docType := range types {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.MarkIneligible(s.ctx, s.key, docType, "EXPIRED on 2026-03-01")
			s.NoError(err)
		}()
	}
	wg.Wait()

	entry, err := s.store.Get(s.ctx, s.key)
	s.Require().NoError(err)
	s.Len(entry.BlockingDocuments, len(types))
}
