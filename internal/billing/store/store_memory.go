// Package store persists payment obligations keyed by their trigger.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"clubreg/internal/billing/idempotency"
	"clubreg/internal/billing/models"
	"clubreg/pkg/platform/sentinel"
)

// ErrDuplicateTrigger is returned when a trigger already has an obligation.
var ErrDuplicateTrigger = fmt.Errorf("payment obligation trigger: %w", sentinel.ErrConflict)

type InMemoryStore struct {
	mu        sync.RWMutex
	byTrigger map[idempotency.Trigger]*models.Obligation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byTrigger: make(map[idempotency.Trigger]*models.Obligation)}
}

func (s *InMemoryStore) ExistsForTrigger(_ context.Context, trigger idempotency.Trigger) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byTrigger[trigger]
	return ok, nil
}

func (s *InMemoryStore) CreateForTrigger(_ context.Context, trigger idempotency.Trigger, o *models.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTrigger[trigger]; ok {
		return ErrDuplicateTrigger
	}
	stored := *o
	s.byTrigger[trigger] = &stored
	return nil
}

func (s *InMemoryStore) ListByPerson(_ context.Context, personID uuid.UUID) ([]*models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Obligation, 0)
	for _, o := range s.byTrigger {
		if o.PersonID != nil && *o.PersonID == personID {
			cp := *o
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Obligation) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
