package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"clubreg/internal/compliance/models"

	"github.com/google/uuid"
)

// InMemoryStore keeps document history in memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	docs       map[uuid.UUID]*models.Document
	superseded map[uuid.UUID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs:       make(map[uuid.UUID]*models.Document),
		superseded: make(map[uuid.UUID]bool),
	}
}

func (s *InMemoryStore) ActiveDocuments(_ context.Context, personID, asdID uuid.UUID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for id, d := range s.docs {
		if !s.superseded[id] && d.PersonID == personID && d.AsdID == asdID {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Record supersedes the active instance of the same type and stores doc.
func (s *InMemoryStore) Record(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if !s.superseded[id] && d.PersonID == doc.PersonID && d.AsdID == doc.AsdID && d.Type == doc.Type {
			s.superseded[id] = true
		}
	}
	stored := *doc
	s.docs[doc.ID] = &stored
	return nil
}

func (s *InMemoryStore) PendingExpiryAnnouncements(_ context.Context, today time.Time, limit int) ([]models.Document, error) {
	return s.pending(limit, func(d *models.Document) bool {
		return d.ExpiryAnnouncedAt == nil && models.Day(d.ExpiresOn).Before(today)
	}), nil
}

func (s *InMemoryStore) PendingRenewalAnnouncements(_ context.Context, today time.Time, limit int) ([]models.Document, error) {
	return s.pending(limit, func(d *models.Document) bool {
		return d.RenewalAnnouncedAt == nil && !models.Day(d.ExpiresOn).Before(today)
	}), nil
}

func (s *InMemoryStore) pending(limit int, match func(*models.Document) bool) []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for id, d := range s.docs {
		if !s.superseded[id] && match(d) {
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b models.Document) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Announce holds the store lock across the active check, publish and flag,
// so a concurrent Record waits until the announcement is settled.
func (s *InMemoryStore) Announce(ctx context.Context, id uuid.UUID, kind models.Announcement, at time.Time, publish func(context.Context) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	var flag **time.Time
	switch kind {
	case models.AnnounceExpiry:
		flag = &d.ExpiryAnnouncedAt
	case models.AnnounceRenewal:
		flag = &d.RenewalAnnouncedAt
	default:
		return false, fmt.Errorf("unknown announcement %q", kind)
	}
	if s.superseded[id] || *flag != nil {
		return false, nil
	}
	if err := publish(ctx); err != nil {
		return false, err
	}
	*flag = &at
	return true, nil
}
