package models

import (
	"time"

	"github.com/google/uuid"
)

// TriggerKind names the upstream fact that created an obligation.
type TriggerKind string

const (
	TriggerParticipation TriggerKind = "participation"
	TriggerMembership    TriggerKind = "membership"
	TriggerEnrollment    TriggerKind = "enrollment"
)

// ObligationStatus is the payment state of an obligation.
type ObligationStatus string

const (
	StatusPending ObligationStatus = "pending"
	StatusPaid    ObligationStatus = "paid"
)

// Obligation is a pending charge created exactly once per trigger. Amounts
// are resolved later by fee rules and are not carried here.
type Obligation struct {
	ID          uuid.UUID        `json:"id"`
	TriggerKind TriggerKind      `json:"triggerKind"`
	TriggerID   uuid.UUID        `json:"triggerId"`
	PersonID    *uuid.UUID       `json:"personId,omitempty"`
	GroupID     *uuid.UUID       `json:"groupId,omitempty"`
	AsdID       uuid.UUID        `json:"asdId"`
	SeasonID    uuid.UUID        `json:"seasonId"`
	Description string           `json:"description"`
	Status      ObligationStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}
