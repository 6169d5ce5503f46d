// Package idempotency applies side effects from at-least-once event delivery
// exactly once per upstream trigger.
//
// The trigger is the upstream entity id carried in the payload (membership,
// enrollment, participation), never the envelope id, so re-published
// envelopes of one fact collapse to one effect. The store records the trigger
// with the effect under a uniqueness constraint; the existence check only
// avoids needless work and the constraint decides concurrent races.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"clubreg/pkg/platform/sentinel"
)

// Trigger identifies the upstream fact behind an effect.
type Trigger struct {
	Kind string
	ID   uuid.UUID
}

func (t Trigger) String() string {
	return t.Kind + ":" + t.ID.String()
}

// EffectStore durably records effects keyed by trigger. CreateForTrigger must
// return an error wrapping sentinel.ErrConflict when the trigger already has
// an effect.
type EffectStore[E any] interface {
	ExistsForTrigger(ctx context.Context, trigger Trigger) (bool, error)
	CreateForTrigger(ctx context.Context, trigger Trigger, effect E) error
}

// Result reports what Apply did.
type Result int

const (
	Applied Result = iota
	Duplicate
)

func (r Result) String() string {
	if r == Duplicate {
		return "duplicate"
	}
	return "applied"
}

// Applier runs build and stores its effect unless the trigger was already
// processed.
type Applier[E any] struct {
	store  EffectStore[E]
	logger *slog.Logger
}

func NewApplier[E any](store EffectStore[E], logger *slog.Logger) (*Applier[E], error) {
	if store == nil {
		return nil, errors.New("effect store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier[E]{store: store, logger: logger}, nil
}

// Apply returns Duplicate without calling build when the trigger is known.
// Any returned error means the effect may not be recorded and the triggering
// message must not be acknowledged.
func (a *Applier[E]) Apply(ctx context.Context, trigger Trigger, build func() (E, error)) (Result, error) {
	exists, err := a.store.ExistsForTrigger(ctx, trigger)
	if err != nil {
		return Applied, fmt.Errorf("check trigger %s: %w", trigger, err)
	}
	if exists {
		a.logger.InfoContext(ctx, "trigger already processed, skipping",
			"trigger", trigger.String(),
		)
		return Duplicate, nil
	}

	effect, err := build()
	if err != nil {
		return Applied, fmt.Errorf("build effect for %s: %w", trigger, err)
	}

	if err := a.store.CreateForTrigger(ctx, trigger, effect); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			a.logger.InfoContext(ctx, "trigger processed concurrently, skipping",
				"trigger", trigger.String(),
			)
			return Duplicate, nil
		}
		return Applied, fmt.Errorf("record effect for %s: %w", trigger, err)
	}
	return Applied, nil
}
