package models

import (
	"slices"
	"time"

	"clubreg/pkg/domain"

	"github.com/google/uuid"
)

// Source records which path last wrote a cache entry.
type Source string

const (
	SourceSyncCheck       Source = "sync_check"
	SourceDocumentExpired Source = "document.expired"
	SourceDocumentRenewed Source = "document.renewed"
	SourceUnknown         Source = "unknown"
)

// ParseSource maps a stored value to a Source, defaulting to SourceUnknown.
func ParseSource(s string) Source {
	switch Source(s) {
	case SourceSyncCheck, SourceDocumentExpired, SourceDocumentRenewed:
		return Source(s)
	}
	return SourceUnknown
}

// UnspecifiedBlocker stands in when the authority reports ineligible without
// naming a document, so an ineligible entry always has at least one blocker.
var UnspecifiedBlocker = domain.Label("UNSPECIFIED", "INELIGIBLE")

// Key identifies one cache entry.
type Key struct {
	PersonID uuid.UUID
	AsdID    uuid.UUID
}

// CacheEntry is the competition-side read model of a person's eligibility at
// an ASD. Values are immutable: every mutation returns a new entry with
// Eligible recomputed from BlockingDocuments.
type CacheEntry struct {
	Key
	Eligible          bool
	BlockingDocuments []string
	Source            Source
	LastUpdatedAt     time.Time
}

// NewSyncEntry builds the full replacement written after a cold verification.
// Blockers are authoritative: eligible=true with blockers is stored as
// ineligible, and eligible=false without blockers gets UnspecifiedBlocker.
func NewSyncEntry(key Key, eligible bool, blockers []string, at time.Time) CacheEntry {
	list := dedupe(blockers)
	if !eligible && len(list) == 0 {
		list = []string{UnspecifiedBlocker}
	}
	return CacheEntry{
		Key:               key,
		Eligible:          len(list) == 0,
		BlockingDocuments: list,
		Source:            SourceSyncCheck,
		LastUpdatedAt:     at,
	}
}

// EmptyEntry is the starting point for a lazily created entry.
func EmptyEntry(key Key) CacheEntry {
	return CacheEntry{Key: key, Eligible: true, BlockingDocuments: []string{}, Source: SourceUnknown}
}

// WithBlocker appends label unless an identical label is already present.
func (e CacheEntry) WithBlocker(label string, at time.Time) CacheEntry {
	list := slices.Clone(e.BlockingDocuments)
	if !slices.Contains(list, label) {
		list = append(list, label)
	}
	return CacheEntry{
		Key:               e.Key,
		Eligible:          false,
		BlockingDocuments: list,
		Source:            SourceDocumentExpired,
		LastUpdatedAt:     at,
	}
}

// WithoutBlockerType drops every blocker whose type prefix is docType.
func (e CacheEntry) WithoutBlockerType(docType string, at time.Time) CacheEntry {
	list := make([]string, 0, len(e.BlockingDocuments))
	for _, label := range e.BlockingDocuments {
		if domain.LabelType(label) != docType {
			list = append(list, label)
		}
	}
	return CacheEntry{
		Key:               e.Key,
		Eligible:          len(list) == 0,
		BlockingDocuments: list,
		Source:            SourceDocumentRenewed,
		LastUpdatedAt:     at,
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
