// Package service implements the registration gate: the single place that
// decides whether a competitive registration may proceed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	eligibility "clubreg/internal/eligibility/models"
	"clubreg/internal/registration/metrics"
	"clubreg/internal/registration/models"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/events"
	"clubreg/pkg/platform/sentinel"
)

const defaultRetryAfter = 30 * time.Second

var tracer = otel.Tracer("clubreg/internal/registration/service")

// EligibilityCache is the competition-side eligibility read model.
type EligibilityCache interface {
	Get(ctx context.Context, key eligibility.Key) (*eligibility.CacheEntry, error)
	OverwriteFromSync(ctx context.Context, key eligibility.Key, eligible bool, blockers []string, checkedAt time.Time) (*eligibility.CacheEntry, error)
}

// ComplianceVerifier is the synchronous fallback used on a cache miss. It
// returns *models.ComplianceCallError on any failure.
type ComplianceVerifier interface {
	CheckEligibility(ctx context.Context, personID, asdID uuid.UUID, agonistic bool) (*models.EligibilityResponse, error)
}

// ParticipationStore persists participations.
type ParticipationStore interface {
	FindByPersonAndEvent(ctx context.Context, personID, eventID uuid.UUID) (*models.Participation, error)
	LockPersonEvent(ctx context.Context, personID, eventID uuid.UUID) error
	Save(ctx context.Context, p *models.Participation) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Participation, error)
}

// EventPublisher records an outbound event. With the outbox writer the event
// commits with the participation.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, env events.Envelope) error
}

// TxRunner opens the unit of work that covers persistence and publication.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the registration gate.
type Service struct {
	cache      EligibilityCache
	verifier   ComplianceVerifier
	store      ParticipationStore
	publisher  EventPublisher
	tx         TxRunner
	cold       singleflight.Group
	direct     bool
	directMu   sync.Mutex
	retryAfter time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRetryAfter sets the hint returned with ComplianceUnavailable.
func WithRetryAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryAfter = d
		}
	}
}

// WithDirectPublish is for a publisher that does not share the store's
// transaction. The event is published before the participation is saved, so
// a failed publish leaves nothing persisted and the caller can retry.
// Persists are serialized in this mode, so the duplicate check and the save
// cannot interleave with another registration.
func WithDirectPublish() Option {
	return func(s *Service) {
		s.direct = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cache EligibilityCache, verifier ComplianceVerifier, store ParticipationStore, publisher EventPublisher, tx TxRunner, opts ...Option) (*Service, error) {
	if cache == nil {
		return nil, errors.New("eligibility cache is required")
	}
	if verifier == nil {
		return nil, errors.New("compliance verifier is required")
	}
	if store == nil {
		return nil, errors.New("participation store is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		cache:      cache,
		verifier:   verifier,
		store:      store,
		publisher:  publisher,
		tx:         tx,
		retryAfter: defaultRetryAfter,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register runs the registration decision procedure. Business outcomes,
// including denial, are returned as an Outcome; the error is reserved for
// unexpected infrastructure failures.
func (s *Service) Register(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error) {
	ctx, span := tracer.Start(ctx, "registration.Register", trace.WithAttributes(
		attribute.String("event.id", cmd.EventID.String()),
		attribute.String("asd.id", cmd.AsdID.String()),
		attribute.Bool("team_entry", cmd.PersonID == nil),
	))
	defer span.End()

	outcome, err := s.register(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		return nil, err
	}
	name := models.OutcomeName(outcome)
	span.SetAttributes(attribute.String("outcome", name))
	s.metrics.RecordOutcome(name)
	return outcome, nil
}

func (s *Service) register(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error) {
	if cmd.PersonID != nil {
		existing, err := s.findExisting(ctx, *cmd.PersonID, cmd.EventID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return models.AlreadyRegistered{ExistingParticipationID: existing.ID}, nil
		}

		denied, err := s.checkEligibility(ctx, cmd)
		if err != nil || denied != nil {
			return denied, err
		}
	}

	// Not revocable from here on: the caller's cancellation no longer applies.
	return s.persist(context.WithoutCancel(ctx), cmd)
}

// checkEligibility returns a terminal outcome when the person may not
// register, or nil to proceed.
func (s *Service) checkEligibility(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error) {
	key := eligibility.Key{PersonID: *cmd.PersonID, AsdID: cmd.AsdID}

	entry, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		if !entry.Eligible {
			return models.Ineligible{BlockingDocuments: entry.BlockingDocuments}, nil
		}
		return nil, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return s.coldVerify(ctx, key, cmd.Agonistic)
	default:
		s.logger.ErrorContext(ctx, "eligibility cache lookup failed",
			"person_id", key.PersonID,
			"asd_id", key.AsdID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "eligibility lookup failed")
	}
}

// coldVerify resolves eligibility through the compliance authority and
// writes the answer back into the cache. Concurrent misses for the same key
// share one call and one cache write.
func (s *Service) coldVerify(ctx context.Context, key eligibility.Key, agonistic bool) (models.Outcome, error) {
	ctx, span := tracer.Start(ctx, "registration.coldVerify")
	defer span.End()

	flightKey := key.PersonID.String() + ":" + key.AsdID.String()
	if agonistic {
		flightKey += ":agonistic"
	}

	// The shared call outlives any one caller; the verifier's own timeout
	// bounds it. Each caller stops waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.cold.DoChan(flightKey, func() (any, error) {
		checkedAt := s.now()
		defer s.metrics.ObserveColdPath(checkedAt)
		resp, err := s.verifier.CheckEligibility(flightCtx, key.PersonID, key.AsdID, agonistic)
		if err != nil {
			return nil, err
		}
		verdict := eligibility.NewSyncEntry(key, resp.Eligible, resp.BlockingDocuments, checkedAt)
		if _, err := s.cache.OverwriteFromSync(flightCtx, key, resp.Eligible, resp.BlockingDocuments, checkedAt); err != nil {
			s.metrics.IncrementCacheWriteFailure()
			s.logger.ErrorContext(flightCtx, "failed to write sync verification to eligibility cache",
				"person_id", key.PersonID,
				"asd_id", key.AsdID,
				"error", err,
			)
		}
		return verdict, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		s.logger.InfoContext(ctx, "caller gave up waiting for compliance verification",
			"person_id", key.PersonID,
			"asd_id", key.AsdID,
			"error", ctx.Err(),
		)
		return models.ComplianceUnavailable{Reason: "request cancelled", RetryAfter: s.retryAfter}, nil
	}
	v, err, shared := res.Val, res.Err, res.Shared
	span.SetAttributes(attribute.Bool("shared", shared))
	if err != nil {
		span.RecordError(err)
		s.logger.WarnContext(ctx, "compliance unavailable on cold path, denying registration",
			"person_id", key.PersonID,
			"asd_id", key.AsdID,
			"error", err,
		)
		return models.ComplianceUnavailable{Reason: unavailableReason(err), RetryAfter: s.retryAfter}, nil
	}

	verdict := v.(eligibility.CacheEntry)
	if !verdict.Eligible {
		return models.Ineligible{BlockingDocuments: verdict.BlockingDocuments}, nil
	}
	return nil, nil
}

func (s *Service) persist(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error) {
	participation := models.NewParticipation(cmd, s.now().UTC())
	env, err := events.NewEnvelope(events.TypeParticipantRegistered, participation.ID.String(), events.ParticipantRegisteredEvent{
		ParticipationID: participation.ID,
		EventID:         participation.EventID,
		PersonID:        participation.PersonID,
		GroupID:         participation.GroupID,
		AsdID:           participation.AsdID,
		SeasonID:        participation.SeasonID,
		Categoria:       participation.Categoria,
	}, participation.CreatedAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build registration event")
	}

	if s.direct {
		s.directMu.Lock()
		defer s.directMu.Unlock()
	}

	var outcome models.Outcome
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if cmd.PersonID != nil {
			if err := s.store.LockPersonEvent(ctx, *cmd.PersonID, cmd.EventID); err != nil {
				return err
			}
			existing, err := s.findExisting(ctx, *cmd.PersonID, cmd.EventID)
			if err != nil {
				return err
			}
			if existing != nil {
				outcome = models.AlreadyRegistered{ExistingParticipationID: existing.ID}
				return nil
			}
		}
		if s.direct {
			if err := s.publisher.Publish(ctx, events.TopicCompetitionParticipations, env); err != nil {
				return err
			}
			if err := s.store.Save(ctx, participation); err != nil {
				return err
			}
		} else {
			if err := s.store.Save(ctx, participation); err != nil {
				return err
			}
			if err := s.publisher.Publish(ctx, events.TopicCompetitionParticipations, env); err != nil {
				return err
			}
		}
		outcome = models.Registered{ParticipationID: participation.ID, EventID: participation.EventID}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) && cmd.PersonID != nil {
			return s.resolveConflict(ctx, cmd)
		}
		s.logger.ErrorContext(ctx, "failed to persist participation",
			"event_id", cmd.EventID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist participation")
	}

	if registered, ok := outcome.(models.Registered); ok {
		s.logger.InfoContext(ctx, "participant registered",
			"participation_id", registered.ParticipationID,
			"event_id", registered.EventID,
			"asd_id", cmd.AsdID,
		)
	}
	return outcome, nil
}

// resolveConflict handles a store that enforces (person, event) uniqueness
// itself and rejected the insert.
func (s *Service) resolveConflict(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error) {
	existing, err := s.findExisting(ctx, *cmd.PersonID, cmd.EventID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "participation conflict without existing entry")
	}
	return models.AlreadyRegistered{ExistingParticipationID: existing.ID}, nil
}

func (s *Service) findExisting(ctx context.Context, personID, eventID uuid.UUID) (*models.Participation, error) {
	existing, err := s.store.FindByPersonAndEvent(ctx, personID, eventID)
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up participation")
}

// ListParticipants returns the participations of an event in registration order.
func (s *Service) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*models.Participation, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	return list, nil
}

func unavailableReason(err error) string {
	var callErr *models.ComplianceCallError
	if errors.As(err, &callErr) {
		return callErr.Reason
	}
	return "compliance verification failed"
}
