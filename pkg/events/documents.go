package events

import (
	"time"

	"github.com/google/uuid"
)

// DocumentExpiredEvent announces that a person's document for an ASD expired.
// Aggregate key: PersonID.
type DocumentExpiredEvent struct {
	PersonID     uuid.UUID `json:"personId"`
	AsdID        uuid.UUID `json:"asdId"`
	DocumentType string    `json:"documentType"`
	ExpiredOn    time.Time `json:"expiredOn"`
}

// DocumentRenewedEvent announces a valid (new or renewed) document.
// Aggregate key: PersonID.
type DocumentRenewedEvent struct {
	PersonID     uuid.UUID `json:"personId"`
	AsdID        uuid.UUID `json:"asdId"`
	DocumentType string    `json:"documentType"`
	NewExpiry    time.Time `json:"newExpiry"`
}
