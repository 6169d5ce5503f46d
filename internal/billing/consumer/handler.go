// Package consumer turns registration, membership and enrollment events into
// payment obligations, one per upstream trigger.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clubreg/internal/billing/idempotency"
	"clubreg/internal/billing/metrics"
	"clubreg/internal/billing/models"
	"clubreg/internal/platform/kafka/consumer"
	"clubreg/pkg/events"
)

var errMalformed = errors.New("malformed obligation trigger")

// ObligationHandler handles every billing topic.
type ObligationHandler struct {
	applier *idempotency.Applier[*models.Obligation]
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewObligationHandler(applier *idempotency.Applier[*models.Obligation], m *metrics.Metrics, logger *slog.Logger) *ObligationHandler {
	return &ObligationHandler{applier: applier, now: time.Now, metrics: m, logger: logger}
}

// Register binds the handler to the topics it consumes.
func (h *ObligationHandler) Register(r *consumer.Router) {
	r.Register(events.TopicCompetitionParticipations, h)
	r.Register(events.TopicClubMemberships, h)
	r.Register(events.TopicCourseEnrollments, h)
}

func (h *ObligationHandler) Handle(ctx context.Context, msg *consumer.Message) consumer.Result {
	env, err := events.Decode(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed billing event",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return consumer.Ack()
	}

	obligation, err := h.obligationFor(env)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping unusable billing event",
			"event_id", env.ID,
			"event_type", env.Type,
			"error", err,
		)
		return consumer.Ack()
	}
	if obligation == nil {
		h.logger.InfoContext(ctx, "ignoring event without billing effect",
			"event_id", env.ID,
			"event_type", env.Type,
		)
		return consumer.Ack()
	}

	kind := string(obligation.TriggerKind)
	trigger := idempotency.Trigger{Kind: kind, ID: obligation.TriggerID}
	result, err := h.applier.Apply(ctx, trigger, func() (*models.Obligation, error) {
		return obligation, nil
	})
	if err != nil {
		h.metrics.RecordTrigger(kind, "failed")
		h.logger.WarnContext(ctx, "failed to record payment obligation",
			"event_id", env.ID,
			"trigger", trigger.String(),
			"error", err,
		)
		return consumer.Nack(err)
	}

	h.metrics.RecordTrigger(kind, result.String())
	if result == idempotency.Applied {
		h.logger.InfoContext(ctx, "payment obligation created",
			"obligation_id", obligation.ID,
			"trigger", trigger.String(),
			"asd_id", obligation.AsdID,
		)
	}
	return consumer.Ack()
}

// obligationFor maps an event to the obligation it triggers. It returns
// (nil, nil) for event types billing does not act on.
func (h *ObligationHandler) obligationFor(env events.Envelope) (*models.Obligation, error) {
	base := &models.Obligation{
		ID:        uuid.New(),
		Status:    models.StatusPending,
		CreatedAt: h.now().UTC(),
	}

	switch env.Type {
	case events.TypeParticipantRegistered:
		var evt events.ParticipantRegisteredEvent
		if err := env.DecodePayload(&evt); err != nil {
			return nil, err
		}
		if evt.ParticipationID == uuid.Nil || evt.AsdID == uuid.Nil {
			return nil, fmt.Errorf("%w: participation without id or asd", errMalformed)
		}
		base.TriggerKind = models.TriggerParticipation
		base.TriggerID = evt.ParticipationID
		base.PersonID = evt.PersonID
		base.GroupID = evt.GroupID
		base.AsdID = evt.AsdID
		base.SeasonID = evt.SeasonID
		base.Description = "Event registration fee (" + evt.Categoria + ")"
	case events.TypeMembershipActivated:
		var evt events.MembershipActivatedEvent
		if err := env.DecodePayload(&evt); err != nil {
			return nil, err
		}
		if evt.MembershipID == uuid.Nil || evt.AsdID == uuid.Nil {
			return nil, fmt.Errorf("%w: membership without id or asd", errMalformed)
		}
		base.TriggerKind = models.TriggerMembership
		base.TriggerID = evt.MembershipID
		base.PersonID = &evt.PersonID
		base.AsdID = evt.AsdID
		base.SeasonID = evt.SeasonID
		base.Description = "Season membership fee"
	case events.TypeEnrollmentCreated:
		var evt events.EnrollmentCreatedEvent
		if err := env.DecodePayload(&evt); err != nil {
			return nil, err
		}
		if evt.EnrollmentID == uuid.Nil || evt.AsdID == uuid.Nil {
			return nil, fmt.Errorf("%w: enrollment without id or asd", errMalformed)
		}
		base.TriggerKind = models.TriggerEnrollment
		base.TriggerID = evt.EnrollmentID
		base.PersonID = &evt.PersonID
		base.AsdID = evt.AsdID
		base.SeasonID = evt.SeasonID
		base.Description = "Course enrollment fee"
	default:
		return nil, nil
	}
	return base, nil
}
