package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clubreg/internal/compliance/models"
	"clubreg/pkg/domain"
)

type documentStore interface {
	ActiveDocuments(ctx context.Context, personID, asdID uuid.UUID) ([]models.Document, error)
	Record(ctx context.Context, doc *models.Document) error
	PendingExpiryAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error)
	PendingRenewalAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error)
	Announce(ctx context.Context, id uuid.UUID, kind models.Announcement, at time.Time, publish func(context.Context) error) (bool, error)
}

// documentContractSuite holds behaviour shared by every document store.
type documentContractSuite struct {
	suite.Suite
	newStore func() documentStore
	store    documentStore
	ctx      context.Context
	today    time.Time
	personID uuid.UUID
	asdID    uuid.UUID
}

func (s *documentContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
	s.today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s.personID = uuid.New()
	s.asdID = uuid.New()
}

func (s *documentContractSuite) doc(docType domain.DocumentType, expires time.Time, recorded time.Time) *models.Document {
	return &models.Document{
		ID:         uuid.New(),
		PersonID:   s.personID,
		AsdID:      s.asdID,
		Type:       docType,
		ExpiresOn:  expires,
		RecordedAt: recorded,
	}
}

func (s *documentContractSuite) TestRecordSupersedesSameType() {
	old := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, 0, -5), s.today.AddDate(-1, 0, 0))
	renewed := s.doc(domain.DocumentMedicalCert, s.today.AddDate(1, 0, 0), s.today)
	card := s.doc(domain.DocumentFederationCard, s.today.AddDate(0, 6, 0), s.today)

	for _, d := range []*models.Document{old, renewed, card} {
		s.Require().NoError(s.store.Record(s.ctx, d))
	}

	active, err := s.store.ActiveDocuments(s.ctx, s.personID, s.asdID)
	s.Require().NoError(err)
	ids := make([]uuid.UUID, 0, len(active))
	for _, d := range active {
		ids = append(ids, d.ID)
	}
	s.ElementsMatch([]uuid.UUID{renewed.ID, card.ID}, ids)
}

func (s *documentContractSuite) TestActiveDocumentsForUnknownPersonIsEmpty() {
	active, err := s.store.ActiveDocuments(s.ctx, uuid.New(), s.asdID)
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *documentContractSuite) TestPendingAnnouncementsSplitOnToday() {
	expired := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, 0, -1), s.today.Add(-2*time.Hour))
	expiresToday := s.doc(domain.DocumentFederationCard, s.today, s.today.Add(-time.Hour))
	s.Require().NoError(s.store.Record(s.ctx, expired))
	s.Require().NoError(s.store.Record(s.ctx, expiresToday))

	pendingExpiry, err := s.store.PendingExpiryAnnouncements(s.ctx, s.today, 10)
	s.Require().NoError(err)
	s.Require().Len(pendingExpiry, 1)
	s.Equal(expired.ID, pendingExpiry[0].ID)

	pendingRenewal, err := s.store.PendingRenewalAnnouncements(s.ctx, s.today, 10)
	s.Require().NoError(err)
	s.Require().Len(pendingRenewal, 1)
	s.Equal(expiresToday.ID, pendingRenewal[0].ID)
}

func (s *documentContractSuite) TestAnnouncedDocumentsAreNotPending() {
	expired := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, -1, 0), s.today)
	s.Require().NoError(s.store.Record(s.ctx, expired))

	published := 0
	publish := func(context.Context) error {
		published++
		return nil
	}
	announced, err := s.store.Announce(s.ctx, expired.ID, models.AnnounceExpiry, s.today, publish)
	s.Require().NoError(err)
	s.True(announced)

	again, err := s.store.Announce(s.ctx, expired.ID, models.AnnounceExpiry, s.today, publish)
	s.Require().NoError(err)
	s.False(again)
	s.Equal(1, published)

	pending, err := s.store.PendingExpiryAnnouncements(s.ctx, s.today, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *documentContractSuite) TestAnnounceSkipsSupersededDocument() {
	old := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, 0, -1), s.today.AddDate(-1, 0, 0))
	s.Require().NoError(s.store.Record(s.ctx, old))
	pending, err := s.store.PendingExpiryAnnouncements(s.ctx, s.today, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	renewed := s.doc(domain.DocumentMedicalCert, s.today.AddDate(1, 0, 0), s.today)
	s.Require().NoError(s.store.Record(s.ctx, renewed))

	announced, err := s.store.Announce(s.ctx, pending[0].ID, models.AnnounceExpiry, s.today, func(context.Context) error {
		s.Fail("superseded document must not be published")
		return nil
	})
	s.Require().NoError(err)
	s.False(announced)
}

func (s *documentContractSuite) TestFailedPublishLeavesDocumentPending() {
	expired := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, 0, -1), s.today)
	s.Require().NoError(s.store.Record(s.ctx, expired))

	publishErr := errors.New("broker down")
	announced, err := s.store.Announce(s.ctx, expired.ID, models.AnnounceExpiry, s.today, func(context.Context) error {
		return publishErr
	})
	s.ErrorIs(err, publishErr)
	s.False(announced)

	pending, err := s.store.PendingExpiryAnnouncements(s.ctx, s.today, 10)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *documentContractSuite) TestRecordWaitsForInFlightAnnouncement() {
	old := s.doc(domain.DocumentMedicalCert, s.today.AddDate(0, 0, -1), s.today.AddDate(-1, 0, 0))
	s.Require().NoError(s.store.Record(s.ctx, old))
	renewed := s.doc(domain.DocumentMedicalCert, s.today.AddDate(1, 0, 0), s.today)

	recorded := make(chan error, 1)
	announced, err := s.store.Announce(s.ctx, old.ID, models.AnnounceExpiry, s.today, func(context.Context) error {
		go func() { recorded <- s.store.Record(s.ctx, renewed) }()
		select {
		case err := <-recorded:
			s.Failf("record finished during announcement", "err: %v", err)
		case <-time.After(100 * time.Millisecond):
		}
		return nil
	})
	s.Require().NoError(err)
	s.True(announced)

	select {
	case err := <-recorded:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.FailNow("record never completed")
	}
	active, err := s.store.ActiveDocuments(s.ctx, s.personID, s.asdID)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(renewed.ID, active[0].ID)
}

func (s *documentContractSuite) TestAnnounceUnknownDocument() {
	_, err := s.store.Announce(s.ctx, uuid.New(), models.AnnounceRenewal, s.today, func(context.Context) error {
		return nil
	})
	s.ErrorIs(err, ErrNotFound)
}

func (s *documentContractSuite) TestPendingRespectsLimitAndOrder() {
	var ids []uuid.UUID
	for i := range 3 {
		d := s.doc(domain.DocumentMedicalCertBasic, s.today.AddDate(0, 0, -1), s.today.Add(time.Duration(i)*time.Minute))
		d.PersonID = uuid.New()
		s.Require().NoError(s.store.Record(s.ctx, d))
		ids = append(ids, d.ID)
	}

	pending, err := s.store.PendingExpiryAnnouncements(s.ctx, s.today, 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(ids[0], pending[0].ID)
	s.Equal(ids[1], pending[1].ID)
}
