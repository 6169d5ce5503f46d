package models

import (
	"time"

	"clubreg/pkg/domain"

	"github.com/google/uuid"
)

// ExpiryWarningWindow is how far ahead an expiry turns into a warning.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// Document is one recorded instance of a compliance document. At most one
// instance per (person, asd, type) is active; recording a new one supersedes it.
type Document struct {
	ID                 uuid.UUID
	PersonID           uuid.UUID
	AsdID              uuid.UUID
	Type               domain.DocumentType
	IssuedOn           *time.Time
	ExpiresOn          time.Time
	RecordedAt         time.Time
	ExpiryAnnouncedAt  *time.Time
	RenewalAnnouncedAt *time.Time
}

// Announcement names which lifecycle event a document is announced with.
type Announcement string

const (
	AnnounceExpiry  Announcement = "expiry"
	AnnounceRenewal Announcement = "renewal"
)

// Status is the derived validity of a document at a point in time.
type Status string

const (
	StatusValid        Status = "valid"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// StatusAt derives the document status on the calendar day of now.
// Expiry is a date: a document expiring today is still valid today.
func (d Document) StatusAt(now time.Time, window time.Duration) Status {
	today := Day(now)
	expires := Day(d.ExpiresOn)
	switch {
	case expires.Before(today):
		return StatusExpired
	case !expires.After(today.Add(window)):
		return StatusExpiringSoon
	default:
		return StatusValid
	}
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// VerdictKind discriminates the three eligibility outcomes.
type VerdictKind string

const (
	VerdictEligible     VerdictKind = "eligible"
	VerdictExpiringSoon VerdictKind = "expiring_soon"
	VerdictIneligible   VerdictKind = "ineligible"
)

// Verdict is the result of an eligibility computation. Build it with
// Eligible, ExpiringSoon or Ineligible so the kind and lists always agree.
type Verdict struct {
	Kind     VerdictKind
	Blockers []string
	Warnings []string
}

func Eligible() Verdict {
	return Verdict{Kind: VerdictEligible, Blockers: []string{}, Warnings: []string{}}
}

func ExpiringSoon(warnings []string) Verdict {
	return Verdict{Kind: VerdictExpiringSoon, Blockers: []string{}, Warnings: warnings}
}

func Ineligible(blockers, warnings []string) Verdict {
	if warnings == nil {
		warnings = []string{}
	}
	return Verdict{Kind: VerdictIneligible, Blockers: blockers, Warnings: warnings}
}

// IsEligible is the externally surfaced boolean: only Ineligible blocks.
func (v Verdict) IsEligible() bool {
	return v.Kind != VerdictIneligible
}
