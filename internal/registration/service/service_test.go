package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks EligibilityCache,ComplianceVerifier,ParticipationStore,EventPublisher,TxRunner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	eligibility "clubreg/internal/eligibility/models"
	eligibilitystore "clubreg/internal/eligibility/store"
	"clubreg/internal/registration/models"
	"clubreg/internal/registration/service/mocks"
	"clubreg/internal/registration/store"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/events"
	"clubreg/pkg/platform/tx"
)

// =============================================================================
// Registration Gate Test Suite
// =============================================================================
// The gate is exercised against mocked ports so each test pins which
// collaborators may be called. Fail-closed behaviour is asserted by leaving
// the cache write unexpected: gomock fails the test if it happens.

type GateSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	cache     *mocks.MockEligibilityCache
	verifier  *mocks.MockComplianceVerifier
	store     *mocks.MockParticipationStore
	publisher *mocks.MockEventPublisher
	service   *Service
	ctx       context.Context
	now       time.Time
	personID  uuid.UUID
	cmd       models.RegisterCommand
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockEligibilityCache(s.ctrl)
	s.verifier = mocks.NewMockComplianceVerifier(s.ctrl)
	s.store = mocks.NewMockParticipationStore(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)
	s.personID = uuid.New()
	s.cmd = models.RegisterCommand{
		EventID:   uuid.New(),
		AsdID:     uuid.New(),
		SeasonID:  uuid.New(),
		PersonID:  &s.personID,
		Categoria: "SENIOR",
		Agonistic: true,
	}

	var err error
	s.service, err = New(s.cache, s.verifier, s.store, s.publisher, tx.Nop{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithRetryAfter(45*time.Second),
	)
	s.Require().NoError(err)
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GateSuite) key() eligibility.Key {
	return eligibility.Key{PersonID: s.personID, AsdID: s.cmd.AsdID}
}

func (s *GateSuite) cached(eligible bool, blockers ...string) *eligibility.CacheEntry {
	entry := eligibility.NewSyncEntry(s.key(), eligible, blockers, s.now.Add(-time.Hour))
	return &entry
}

func (s *GateSuite) expectNoExisting() {
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
}

func (s *GateSuite) expectPersist() {
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), events.TopicCompetitionParticipations, gomock.Any()).Return(nil)
}

func (s *GateSuite) TestNew() {
	s.Run("nil collaborators are rejected", func() {
		_, err := New(nil, s.verifier, s.store, s.publisher, tx.Nop{})
		s.ErrorContains(err, "eligibility cache is required")
		_, err = New(s.cache, nil, s.store, s.publisher, tx.Nop{})
		s.ErrorContains(err, "compliance verifier is required")
		_, err = New(s.cache, s.verifier, nil, s.publisher, tx.Nop{})
		s.ErrorContains(err, "participation store is required")
		_, err = New(s.cache, s.verifier, s.store, nil, tx.Nop{})
		s.ErrorContains(err, "event publisher is required")
		_, err = New(s.cache, s.verifier, s.store, s.publisher, nil)
		s.ErrorContains(err, "transaction runner is required")
	})
}

func (s *GateSuite) TestCachedIneligibleDeniesWithoutRemoteCall() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(false, "MEDICAL_CERT [EXPIRED on 2026-03-01]"), nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.Ineligible{BlockingDocuments: []string{"MEDICAL_CERT [EXPIRED on 2026-03-01]"}}, outcome)
}

func (s *GateSuite) TestCachedEligibleRegistersWithoutRemoteCall() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(true), nil)
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)

	var saved *models.Participation
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.Participation) error {
		saved = p
		return nil
	})
	var published events.Envelope
	s.publisher.EXPECT().Publish(gomock.Any(), events.TopicCompetitionParticipations, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, env events.Envelope) error {
			published = env
			return nil
		})

	outcome, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)

	registered, ok := outcome.(models.Registered)
	s.Require().True(ok, "expected Registered, got %T", outcome)
	s.Equal(saved.ID, registered.ParticipationID)
	s.Equal(s.cmd.EventID, registered.EventID)
	s.Equal(models.StatusRegistered, saved.Status)

	s.Equal(events.TypeParticipantRegistered, published.Type)
	s.Equal(saved.ID.String(), published.AggregateID)
	var payload events.ParticipantRegisteredEvent
	s.Require().NoError(published.DecodePayload(&payload))
	s.Equal(saved.ID, payload.ParticipationID)
	s.Equal(s.personID, *payload.PersonID)
	s.Nil(payload.GroupID)
	s.Equal(s.cmd.AsdID, payload.AsdID)
	s.Equal(s.cmd.SeasonID, payload.SeasonID)
	s.Equal("SENIOR", payload.Categoria)
}

func (s *GateSuite) TestColdMissIneligibleWritesSyncEntry() {
	blockers := []string{"MEDICAL_CERT [MISSING]"}
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, eligibilitystore.ErrNotFound)
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(&models.EligibilityResponse{Eligible: false, BlockingDocuments: blockers}, nil)
	s.cache.EXPECT().OverwriteFromSync(gomock.Any(), s.key(), false, blockers, s.now).Return(s.cached(false, blockers...), nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.Ineligible{BlockingDocuments: blockers}, outcome)
}

func (s *GateSuite) TestColdMissIneligibleWithoutBlockersStillDenies() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, eligibilitystore.ErrNotFound)
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(&models.EligibilityResponse{Eligible: false}, nil)
	s.cache.EXPECT().OverwriteFromSync(gomock.Any(), s.key(), false, gomock.Nil(), s.now).Return(s.cached(false), nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.Ineligible{BlockingDocuments: []string{eligibility.UnspecifiedBlocker}}, outcome)
}

func (s *GateSuite) TestColdMissEligibleRegisters() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, eligibilitystore.ErrNotFound)
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(&models.EligibilityResponse{Eligible: true, BlockingDocuments: []string{}}, nil)
	s.cache.EXPECT().OverwriteFromSync(gomock.Any(), s.key(), true, []string{}, s.now).Return(s.cached(true), nil)
	s.expectPersist()

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.IsType(models.Registered{}, outcome)
}

func (s *GateSuite) TestColdMissUnreachableAuthorityFailsClosed() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, eligibilitystore.ErrNotFound)
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(nil, &models.ComplianceCallError{Reason: "transport", Err: context.DeadlineExceeded})

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.ComplianceUnavailable{Reason: "transport", RetryAfter: 45 * time.Second}, outcome)
}

func (s *GateSuite) TestCacheWriteFailureAfterVerificationUsesVerdict() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, eligibilitystore.ErrNotFound)
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(&models.EligibilityResponse{Eligible: true}, nil)
	s.cache.EXPECT().OverwriteFromSync(gomock.Any(), s.key(), true, gomock.Any(), s.now).Return(nil, errors.New("connection reset"))
	s.expectPersist()

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.IsType(models.Registered{}, outcome)
}

func (s *GateSuite) TestCacheReadFailureIsInternalError() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(nil, errors.New("connection reset"))

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GateSuite) TestDuplicateTakesPrecedenceOverEligibility() {
	existing := &models.Participation{ID: uuid.New(), EventID: s.cmd.EventID, PersonID: &s.personID}
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(existing, nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.AlreadyRegistered{ExistingParticipationID: existing.ID}, outcome)
}

func (s *GateSuite) TestDuplicateDetectedUnderLock() {
	existing := &models.Participation{ID: uuid.New(), EventID: s.cmd.EventID, PersonID: &s.personID}
	gomock.InOrder(
		s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound),
		s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil),
		s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(existing, nil),
	)
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(true), nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.Equal(models.AlreadyRegistered{ExistingParticipationID: existing.ID}, outcome)
}

func (s *GateSuite) TestTeamEntrySkipsDuplicateAndEligibility() {
	groupID := uuid.New()
	cmd := s.cmd
	cmd.PersonID = nil
	cmd.GroupID = &groupID

	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.Participation) error {
		s.True(p.IsTeamEntry())
		s.Equal(groupID, *p.GroupID)
		return nil
	})
	s.publisher.EXPECT().Publish(gomock.Any(), events.TopicCompetitionParticipations, gomock.Any()).Return(nil)

	outcome, err := s.service.Register(s.ctx, cmd)

	s.Require().NoError(err)
	s.IsType(models.Registered{}, outcome)
}

func (s *GateSuite) TestPublishFailureIsInternalError() {
	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(true), nil)
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("outbox insert failed"))

	outcome, err := s.service.Register(s.ctx, s.cmd)

	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GateSuite) TestDirectPublishFailureSavesNothing() {
	svc, err := New(s.cache, s.verifier, s.store, s.publisher, tx.Nop{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDirectPublish(),
	)
	s.Require().NoError(err)

	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(true), nil)
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
	s.publisher.EXPECT().Publish(gomock.Any(), events.TopicCompetitionParticipations, gomock.Any()).Return(errors.New("broker unavailable"))

	outcome, err := svc.Register(s.ctx, s.cmd)

	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GateSuite) TestDirectPublishPrecedesSave() {
	svc, err := New(s.cache, s.verifier, s.store, s.publisher, tx.Nop{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDirectPublish(),
	)
	s.Require().NoError(err)

	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).Return(s.cached(true), nil)
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
	gomock.InOrder(
		s.publisher.EXPECT().Publish(gomock.Any(), events.TopicCompetitionParticipations, gomock.Any()).Return(nil),
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)

	outcome, err := svc.Register(s.ctx, s.cmd)

	s.Require().NoError(err)
	s.IsType(models.Registered{}, outcome)
}

func (s *GateSuite) TestPersistenceIgnoresCallerCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.expectNoExisting()
	s.cache.EXPECT().Get(gomock.Any(), s.key()).DoAndReturn(func(context.Context, eligibility.Key) (*eligibility.CacheEntry, error) {
		cancel()
		return s.cached(true), nil
	})
	s.store.EXPECT().LockPersonEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil)
	s.store.EXPECT().FindByPersonAndEvent(gomock.Any(), s.personID, s.cmd.EventID).Return(nil, store.ErrNotFound)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *models.Participation) error {
		return ctx.Err()
	})
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	outcome, err := s.service.Register(ctx, s.cmd)

	s.Require().NoError(err)
	s.IsType(models.Registered{}, outcome)
}

// =============================================================================
// Gate against in-memory stores
// =============================================================================
// These pin the observable cache and participation state after a decision.

type GateStateSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	verifier *mocks.MockComplianceVerifier
	cache    *eligibilitystore.InMemoryStore
	store    *store.InMemoryStore
	service  *Service
	ctx      context.Context
	personID uuid.UUID
	cmd      models.RegisterCommand
}

func TestGateStateSuite(t *testing.T) {
	suite.Run(t, new(GateStateSuite))
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (s *GateStateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockComplianceVerifier(s.ctrl)
	s.cache = eligibilitystore.NewInMemoryStore()
	s.store = store.NewInMemoryStore()
	s.ctx = context.Background()
	s.personID = uuid.New()
	s.cmd = models.RegisterCommand{
		EventID:   uuid.New(),
		AsdID:     uuid.New(),
		SeasonID:  uuid.New(),
		PersonID:  &s.personID,
		Categoria: "JUNIOR",
		Agonistic: true,
	}
	var err error
	s.service, err = New(s.cache, s.verifier, s.store, &recordingPublisher{}, tx.Nop{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
}

func (s *GateStateSuite) key() eligibility.Key {
	return eligibility.Key{PersonID: s.personID, AsdID: s.cmd.AsdID}
}

func (s *GateStateSuite) TestColdIneligibleIsCachedAsSyncCheck() {
	blockers := []string{"MEDICAL_CERT [MISSING]"}
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(&models.EligibilityResponse{Eligible: false, BlockingDocuments: blockers}, nil)

	outcome, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	s.Equal(models.Ineligible{BlockingDocuments: blockers}, outcome)

	entry, err := s.cache.Get(s.ctx, s.key())
	s.Require().NoError(err)
	s.False(entry.Eligible)
	s.Equal(blockers, entry.BlockingDocuments)
	s.Equal(eligibility.SourceSyncCheck, entry.Source)

	// The second attempt is answered from the cache.
	outcome, err = s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	s.Equal(models.Ineligible{BlockingDocuments: blockers}, outcome)
}

func (s *GateStateSuite) TestVerifierTimeoutLeavesCacheEmpty() {
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		Return(nil, &models.ComplianceCallError{Reason: "transport", Err: context.DeadlineExceeded})

	outcome, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	s.IsType(models.ComplianceUnavailable{}, outcome)

	_, err = s.cache.Get(s.ctx, s.key())
	s.ErrorIs(err, eligibilitystore.ErrNotFound)
	list, err := s.store.ListByEvent(s.ctx, s.cmd.EventID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *GateStateSuite) TestRegisterTwiceReturnsSameParticipation() {
	_, err := s.cache.OverwriteFromSync(s.ctx, s.key(), true, nil, time.Now())
	s.Require().NoError(err)

	first, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	registered, ok := first.(models.Registered)
	s.Require().True(ok)

	second, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	s.Equal(models.AlreadyRegistered{ExistingParticipationID: registered.ParticipationID}, second)
}

func (s *GateStateSuite) TestAlreadyRegisteredWinsAfterBecomingIneligible() {
	_, err := s.cache.OverwriteFromSync(s.ctx, s.key(), true, nil, time.Now())
	s.Require().NoError(err)
	first, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)

	_, err = s.cache.MarkIneligible(s.ctx, s.key(), "MEDICAL_CERT", "EXPIRED on 2026-04-01")
	s.Require().NoError(err)

	second, err := s.service.Register(s.ctx, s.cmd)
	s.Require().NoError(err)
	s.Equal(models.AlreadyRegistered{ExistingParticipationID: first.(models.Registered).ParticipationID}, second)
}

func (s *GateStateSuite) TestConcurrentFirstRegistrationsPersistOnce() {
	_, err := s.cache.OverwriteFromSync(s.ctx, s.key(), true, nil, time.Now())
	s.Require().NoError(err)

	var (
		wg         sync.WaitGroup
		registered atomic.Int32
		duplicates atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.service.Register(s.ctx, s.cmd)
			if !s.NoError(err) {
				return
			}
			switch outcome.(type) {
			case models.Registered:
				registered.Add(1)
			case models.AlreadyRegistered:
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), registered.Load())
	s.Equal(int32(7), duplicates.Load())
}

func (s *GateStateSuite) TestConcurrentColdMissesShareOneVerification() {
	release := make(chan struct{})
	var calls atomic.Int32
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		DoAndReturn(func(context.Context, uuid.UUID, uuid.UUID, bool) (*models.EligibilityResponse, error) {
			calls.Add(1)
			<-release
			return &models.EligibilityResponse{Eligible: true}, nil
		}).AnyTimes()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		cmd := s.cmd
		cmd.EventID = uuid.New()
		go func() {
			defer wg.Done()
			outcome, err := s.service.Register(s.ctx, cmd)
			s.NoError(err)
			s.IsType(models.Registered{}, outcome)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), calls.Load())
}

func (s *GateStateSuite) TestCancelledCallerDoesNotFailSharedVerification() {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s.verifier.EXPECT().CheckEligibility(gomock.Any(), s.personID, s.cmd.AsdID, true).
		DoAndReturn(func(ctx context.Context, _, _ uuid.UUID, _ bool) (*models.EligibilityResponse, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			if err := ctx.Err(); err != nil {
				return nil, &models.ComplianceCallError{Reason: "transport", Err: err}
			}
			return &models.EligibilityResponse{Eligible: true}, nil
		}).AnyTimes()

	ctxA, cancelA := context.WithCancel(s.ctx)
	defer cancelA()
	outcomeA := make(chan models.Outcome, 1)
	go func() {
		outcome, err := s.service.Register(ctxA, s.cmd)
		s.NoError(err)
		outcomeA <- outcome
	}()
	<-started

	cmdB := s.cmd
	cmdB.EventID = uuid.New()
	outcomeB := make(chan models.Outcome, 1)
	go func() {
		outcome, err := s.service.Register(s.ctx, cmdB)
		s.NoError(err)
		outcomeB <- outcome
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	s.IsType(models.ComplianceUnavailable{}, <-outcomeA)
	close(release)

	s.IsType(models.Registered{}, <-outcomeB)
	s.Equal(int32(1), calls.Load())
	entry, err := s.cache.Get(s.ctx, s.key())
	s.Require().NoError(err)
	s.True(entry.Eligible)
}

func (s *GateStateSuite) TestDirectPublishConcurrentRegistrationsPublishOnce() {
	publisher := &recordingPublisher{}
	svc, err := New(s.cache, s.verifier, s.store, publisher, tx.Nop{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDirectPublish(),
	)
	s.Require().NoError(err)
	_, err = s.cache.OverwriteFromSync(s.ctx, s.key(), true, nil, time.Now())
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(s.ctx, s.cmd)
			s.NoError(err)
		}()
	}
	wg.Wait()

	list, err := s.store.ListByEvent(s.ctx, s.cmd.EventID)
	s.Require().NoError(err)
	s.Len(list, 1)
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	s.Len(publisher.envelopes, 1)
}
