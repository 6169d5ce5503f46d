package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"clubreg/internal/eligibility/metrics"
	"clubreg/internal/eligibility/models"
	"clubreg/pkg/domain"
	"clubreg/pkg/platform/sentinel"
)

// ErrNotFound is returned when no cache entry exists for a key.
var ErrNotFound = fmt.Errorf("eligibility cache entry: %w", sentinel.ErrNotFound)

// Option configures a cache store.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

// WithClock overrides the write timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// InMemoryStore is a mutex-guarded cache. Each mutation holds the lock for
// its whole read-modify-write.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[models.Key]models.CacheEntry
	opts    options
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[models.Key]models.CacheEntry),
		opts:    buildOptions(opts),
	}
}

func (s *InMemoryStore) Get(_ context.Context, key models.Key) (*models.CacheEntry, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		s.opts.metrics.RecordMiss(start)
		return nil, ErrNotFound
	}
	s.opts.metrics.RecordHit(start)
	return cloneEntry(entry), nil
}

// OverwriteFromSync replaces the entry unless it was updated after checkedAt,
// in which case the newer entry is kept and returned.
func (s *InMemoryStore) OverwriteFromSync(_ context.Context, key models.Key, eligible bool, blockers []string, checkedAt time.Time) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[key]; ok && current.LastUpdatedAt.After(checkedAt) {
		s.opts.metrics.RecordStaleSyncSkip()
		return cloneEntry(current), nil
	}
	entry := models.NewSyncEntry(key, eligible, blockers, s.opts.now())
	s.entries[key] = entry
	s.opts.metrics.RecordMutation(string(entry.Source))
	return cloneEntry(entry), nil
}

func (s *InMemoryStore) MarkIneligible(_ context.Context, key models.Key, docType, reason string) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		current = models.EmptyEntry(key)
	}
	entry := current.WithBlocker(domain.Label(docType, reason), s.opts.now())
	s.entries[key] = entry
	s.opts.metrics.RecordMutation(string(entry.Source))
	return cloneEntry(entry), nil
}

// RemoveBlocker returns (nil, nil) when there is no entry: a renewal for an
// unknown person never creates one.
func (s *InMemoryStore) RemoveBlocker(_ context.Context, key models.Key, docType string) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry := current.WithoutBlockerType(docType, s.opts.now())
	s.entries[key] = entry
	s.opts.metrics.RecordMutation(string(entry.Source))
	return cloneEntry(entry), nil
}

func cloneEntry(e models.CacheEntry) *models.CacheEntry {
	e.BlockingDocuments = slices.Clone(e.BlockingDocuments)
	if e.BlockingDocuments == nil {
		e.BlockingDocuments = []string{}
	}
	return &e
}
