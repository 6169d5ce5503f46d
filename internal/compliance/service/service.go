package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubreg/internal/compliance/eligibility"
	"clubreg/internal/compliance/metrics"
	"clubreg/internal/compliance/models"
	"clubreg/pkg/domain"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/events"
	"clubreg/pkg/requestcontext"

	"github.com/google/uuid"
)

// DocumentStore persists compliance documents.
type DocumentStore interface {
	ActiveDocuments(ctx context.Context, personID, asdID uuid.UUID) ([]models.Document, error)
	Record(ctx context.Context, doc *models.Document) error
	PendingExpiryAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error)
	PendingRenewalAnnouncements(ctx context.Context, today time.Time, limit int) ([]models.Document, error)
	// Announce runs publish and flags the document in one step. It returns
	// false without publishing when the document is superseded or already
	// announced.
	Announce(ctx context.Context, id uuid.UUID, kind models.Announcement, at time.Time, publish func(context.Context) error) (bool, error)
}

// EventPublisher delivers document lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, env events.Envelope) error
}

const defaultSweepBatch = 500

// Service owns the document lifecycle and the eligibility computation.
type Service struct {
	store      DocumentStore
	publisher  EventPublisher
	window     time.Duration
	sweepBatch int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithWarningWindow overrides the 30-day expiring-soon window.
func WithWarningWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithSweepBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func New(store DocumentStore, publisher EventPublisher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	svc := &Service{
		store:      store,
		publisher:  publisher,
		window:     models.ExpiryWarningWindow,
		sweepBatch: defaultSweepBatch,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckEligibility computes the verdict for a person at an ASD. It never
// writes.
func (s *Service) CheckEligibility(ctx context.Context, personID, asdID uuid.UUID, agonistic bool) (models.Verdict, error) {
	start := time.Now()
	docs, err := s.store.ActiveDocuments(ctx, personID, asdID)
	if err != nil {
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}
	verdict := eligibility.Compute(domain.RequiredDocuments(agonistic), eligibility.Index(docs), requestcontext.Now(ctx), s.window)
	s.metrics.ObserveCheck(string(verdict.Kind), start)
	return verdict, nil
}

// RecordDocumentCommand describes an upload or renewal.
type RecordDocumentCommand struct {
	PersonID  uuid.UUID
	AsdID     uuid.UUID
	Type      domain.DocumentType
	IssuedOn  *time.Time
	ExpiresOn time.Time
}

// RecordDocument stores a new active document and, when it is not already
// expired, announces it as renewed. A failed announcement is left for the
// sweep; the document is recorded either way.
func (s *Service) RecordDocument(ctx context.Context, cmd RecordDocumentCommand) (*models.Document, error) {
	if !cmd.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported document type")
	}
	if cmd.IssuedOn != nil && cmd.ExpiresOn.Before(*cmd.IssuedOn) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry date precedes issue date")
	}

	now := requestcontext.Now(ctx)
	doc := &models.Document{
		ID:         uuid.New(),
		PersonID:   cmd.PersonID,
		AsdID:      cmd.AsdID,
		Type:       cmd.Type,
		IssuedOn:   cmd.IssuedOn,
		ExpiresOn:  models.Day(cmd.ExpiresOn),
		RecordedAt: now,
	}
	if err := s.store.Record(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document")
	}
	s.metrics.IncrementDocumentsRecorded()

	if doc.StatusAt(now, s.window) != models.StatusExpired {
		if _, err := s.announceRenewal(ctx, doc, now); err != nil {
			s.logger.WarnContext(ctx, "document renewal not announced, sweep will retry",
				"document_id", doc.ID,
				"person_id", doc.PersonID,
				"error", err,
			)
		}
	}
	return doc, nil
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	ExpiredAnnounced int `json:"expiredAnnounced"`
	RenewedAnnounced int `json:"renewedAnnounced"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
}

// Sweep announces every active document whose expiry or renewal has not been
// published yet. Flags are set only after a successful publish, so a crash
// between the two re-announces rather than drops. A document superseded
// after it was listed is skipped.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := requestcontext.Now(ctx)
	today := models.Day(now)

	expired, err := s.store.PendingExpiryAnnouncements(ctx, today, s.sweepBatch)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired documents")
	}
	for i := range expired {
		announced, err := s.announceExpiry(ctx, &expired[i], now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.ErrorContext(ctx, "failed to announce document expiry",
				"document_id", expired[i].ID, "error", err)
		case announced:
			result.ExpiredAnnounced++
		default:
			result.Skipped++
			s.logger.DebugContext(ctx, "document expiry already settled",
				"document_id", expired[i].ID)
		}
	}

	renewed, err := s.store.PendingRenewalAnnouncements(ctx, today, s.sweepBatch)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list renewed documents")
	}
	for i := range renewed {
		announced, err := s.announceRenewal(ctx, &renewed[i], now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.ErrorContext(ctx, "failed to announce document renewal",
				"document_id", renewed[i].ID, "error", err)
		case announced:
			result.RenewedAnnounced++
		default:
			result.Skipped++
			s.logger.DebugContext(ctx, "document renewal already settled",
				"document_id", renewed[i].ID)
		}
	}

	s.logger.InfoContext(ctx, "document sweep finished",
		"expired_announced", result.ExpiredAnnounced,
		"renewed_announced", result.RenewedAnnounced,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) announceExpiry(ctx context.Context, doc *models.Document, now time.Time) (bool, error) {
	env, err := events.NewEnvelope(events.TypeDocumentExpired, doc.PersonID.String(), events.DocumentExpiredEvent{
		PersonID:     doc.PersonID,
		AsdID:        doc.AsdID,
		DocumentType: doc.Type.String(),
		ExpiredOn:    doc.ExpiresOn,
	}, now)
	if err != nil {
		return false, err
	}
	return s.store.Announce(ctx, doc.ID, models.AnnounceExpiry, now, func(ctx context.Context) error {
		return s.publish(ctx, env)
	})
}

func (s *Service) announceRenewal(ctx context.Context, doc *models.Document, now time.Time) (bool, error) {
	env, err := events.NewEnvelope(events.TypeDocumentRenewed, doc.PersonID.String(), events.DocumentRenewedEvent{
		PersonID:     doc.PersonID,
		AsdID:        doc.AsdID,
		DocumentType: doc.Type.String(),
		NewExpiry:    doc.ExpiresOn,
	}, now)
	if err != nil {
		return false, err
	}
	return s.store.Announce(ctx, doc.ID, models.AnnounceRenewal, now, func(ctx context.Context) error {
		return s.publish(ctx, env)
	})
}

func (s *Service) publish(ctx context.Context, env events.Envelope) error {
	if err := s.publisher.Publish(ctx, events.TopicComplianceDocuments, env); err != nil {
		s.metrics.IncrementAnnouncementFailure()
		return fmt.Errorf("publish %s: %w", env.Type, err)
	}
	s.metrics.IncrementAnnounced(string(env.Type))
	return nil
}
