// Package consumer keeps the eligibility cache warm from document lifecycle
// events. It is the only asynchronous writer of the cache and never calls the
// compliance service.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clubreg/internal/eligibility/models"
	"clubreg/internal/platform/kafka/consumer"
	"clubreg/pkg/domain"
	"clubreg/pkg/events"

	"github.com/google/uuid"
)

var errMissingFields = errors.New("person, asd and document type are required")

// CacheWriter is the subset of the eligibility cache the consumer mutates.
type CacheWriter interface {
	MarkIneligible(ctx context.Context, key models.Key, docType, reason string) (*models.CacheEntry, error)
	RemoveBlocker(ctx context.Context, key models.Key, docType string) (*models.CacheEntry, error)
}

// DocumentEventHandler applies document.expired and document.renewed events.
type DocumentEventHandler struct {
	cache  CacheWriter
	logger *slog.Logger
}

func NewDocumentEventHandler(cache CacheWriter, logger *slog.Logger) *DocumentEventHandler {
	return &DocumentEventHandler{cache: cache, logger: logger}
}

// Handle acks records that are not document events at all. A document.expired
// or document.renewed whose payload cannot be used is nacked, so bounded
// redelivery moves it to the dead-letter topic instead of dropping it. Cache
// write failures are nacked too.
func (h *DocumentEventHandler) Handle(ctx context.Context, msg *consumer.Message) consumer.Result {
	env, err := events.Decode(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed document event",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return consumer.Ack()
	}

	switch env.Type {
	case events.TypeDocumentExpired:
		return h.handleExpired(ctx, env)
	case events.TypeDocumentRenewed:
		return h.handleRenewed(ctx, env)
	default:
		h.logger.InfoContext(ctx, "ignoring unrecognized document event",
			"event_type", env.Type,
			"event_id", env.ID,
		)
		return consumer.Ack()
	}
}

func (h *DocumentEventHandler) handleExpired(ctx context.Context, env events.Envelope) consumer.Result {
	var evt events.DocumentExpiredEvent
	err := env.DecodePayload(&evt)
	if err == nil && (!validKey(evt.PersonID, evt.AsdID) || evt.DocumentType == "") {
		err = errMissingFields
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "malformed document.expired payload",
			"event_id", env.ID,
			"error", err,
		)
		return consumer.Nack(fmt.Errorf("decode %s payload: %w", env.Type, err))
	}

	key := models.Key{PersonID: evt.PersonID, AsdID: evt.AsdID}
	entry, err := h.cache.MarkIneligible(ctx, key, evt.DocumentType, domain.ReasonExpired(evt.ExpiredOn))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to mark eligibility cache ineligible",
			"event_id", env.ID,
			"person_id", evt.PersonID,
			"asd_id", evt.AsdID,
			"error", err,
		)
		return consumer.Nack(err)
	}

	h.logger.InfoContext(ctx, "eligibility cache marked ineligible",
		"event_id", env.ID,
		"person_id", evt.PersonID,
		"asd_id", evt.AsdID,
		"document_type", evt.DocumentType,
		"blockers", len(entry.BlockingDocuments),
	)
	return consumer.Ack()
}

func (h *DocumentEventHandler) handleRenewed(ctx context.Context, env events.Envelope) consumer.Result {
	var evt events.DocumentRenewedEvent
	err := env.DecodePayload(&evt)
	if err == nil && (!validKey(evt.PersonID, evt.AsdID) || evt.DocumentType == "") {
		err = errMissingFields
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "malformed document.renewed payload",
			"event_id", env.ID,
			"error", err,
		)
		return consumer.Nack(fmt.Errorf("decode %s payload: %w", env.Type, err))
	}

	key := models.Key{PersonID: evt.PersonID, AsdID: evt.AsdID}
	entry, err := h.cache.RemoveBlocker(ctx, key, evt.DocumentType)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to remove eligibility blocker",
			"event_id", env.ID,
			"person_id", evt.PersonID,
			"asd_id", evt.AsdID,
			"error", err,
		)
		return consumer.Nack(err)
	}
	if entry == nil {
		h.logger.DebugContext(ctx, "renewal for uncached person, nothing to update",
			"event_id", env.ID,
			"person_id", evt.PersonID,
		)
		return consumer.Ack()
	}

	h.logger.InfoContext(ctx, "eligibility blocker removed",
		"event_id", env.ID,
		"person_id", evt.PersonID,
		"asd_id", evt.AsdID,
		"document_type", evt.DocumentType,
		"eligible", entry.Eligible,
	)
	return consumer.Ack()
}

func validKey(personID, asdID uuid.UUID) bool {
	return personID != uuid.Nil && asdID != uuid.Nil
}
