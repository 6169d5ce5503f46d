// Package store persists participations.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"clubreg/internal/registration/models"
	"clubreg/pkg/platform/sentinel"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no participation matches.
	ErrNotFound = fmt.Errorf("participation: %w", sentinel.ErrNotFound)
	// ErrDuplicate is returned by the in-memory store when a person already
	// holds a participation for the event.
	ErrDuplicate = fmt.Errorf("participation already exists: %w", sentinel.ErrConflict)
)

type personEvent struct {
	personID uuid.UUID
	eventID  uuid.UUID
}

// InMemoryStore keeps participations in process. Save rejects a second
// individual entry for the same (person, event), which stands in for the
// advisory lock the Postgres store relies on.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*models.Participation
	byPerson map[personEvent]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[uuid.UUID]*models.Participation),
		byPerson: make(map[personEvent]uuid.UUID),
	}
}

func (s *InMemoryStore) FindByPersonAndEvent(_ context.Context, personID, eventID uuid.UUID) (*models.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPerson[personEvent{personID, eventID}]
	if !ok {
		return nil, ErrNotFound
	}
	p := *s.byID[id]
	return &p, nil
}

// LockPersonEvent is a no-op; Save is atomic under the store mutex.
func (s *InMemoryStore) LockPersonEvent(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PersonID != nil {
		key := personEvent{*p.PersonID, p.EventID}
		if _, exists := s.byPerson[key]; exists {
			return ErrDuplicate
		}
		s.byPerson[key] = p.ID
	}
	stored := *p
	s.byID[p.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]*models.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Participation, 0)
	for _, p := range s.byID {
		if p.EventID == eventID {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Participation) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
