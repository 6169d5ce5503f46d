package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a registration attempt. The set of variants is
// closed: only the types in this file implement it.
type Outcome interface {
	isOutcome()
}

// Registered means the participation was persisted and announced.
type Registered struct {
	ParticipationID uuid.UUID
	EventID         uuid.UUID
}

// Ineligible means the person is blocked by one or more documents.
type Ineligible struct {
	BlockingDocuments []string
}

// AlreadyRegistered means the person already holds a participation for the event.
type AlreadyRegistered struct {
	ExistingParticipationID uuid.UUID
}

// ComplianceUnavailable means eligibility could not be established: there
// was no cache entry and the compliance authority could not be reached.
type ComplianceUnavailable struct {
	Reason     string
	RetryAfter time.Duration
}

func (Registered) isOutcome()            {}
func (Ineligible) isOutcome()            {}
func (AlreadyRegistered) isOutcome()     {}
func (ComplianceUnavailable) isOutcome() {}

// MatchOutcome dispatches o to the function for its variant. Every variant
// has a parameter, so adding one breaks every call site until it is handled.
func MatchOutcome[T any](
	o Outcome,
	registered func(Registered) T,
	ineligible func(Ineligible) T,
	alreadyRegistered func(AlreadyRegistered) T,
	unavailable func(ComplianceUnavailable) T,
) T {
	switch v := o.(type) {
	case Registered:
		return registered(v)
	case Ineligible:
		return ineligible(v)
	case AlreadyRegistered:
		return alreadyRegistered(v)
	case ComplianceUnavailable:
		return unavailable(v)
	default:
		panic(fmt.Sprintf("registration: unhandled outcome %T", o))
	}
}

// OutcomeName returns a stable label for logs and metrics.
func OutcomeName(o Outcome) string {
	return MatchOutcome(o,
		func(Registered) string { return "registered" },
		func(Ineligible) string { return "ineligible" },
		func(AlreadyRegistered) string { return "already_registered" },
		func(ComplianceUnavailable) string { return "compliance_unavailable" },
	)
}
