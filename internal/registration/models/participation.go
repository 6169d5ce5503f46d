package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a participation.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusWithdrawn  Status = "withdrawn"
)

// Participation is an entry of a person or a group into a competitive event.
// Exactly one of PersonID and GroupID is set.
type Participation struct {
	ID        uuid.UUID  `json:"id"`
	EventID   uuid.UUID  `json:"eventId"`
	PersonID  *uuid.UUID `json:"personId,omitempty"`
	GroupID   *uuid.UUID `json:"groupId,omitempty"`
	AsdID     uuid.UUID  `json:"asdId"`
	SeasonID  uuid.UUID  `json:"seasonId"`
	Categoria string     `json:"categoria"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// IsTeamEntry reports whether the participation is a group entry. Team
// entries skip both the duplicate check and eligibility.
func (p *Participation) IsTeamEntry() bool {
	return p.PersonID == nil
}

// RegisterCommand is a validated registration request.
type RegisterCommand struct {
	EventID   uuid.UUID
	AsdID     uuid.UUID
	SeasonID  uuid.UUID
	PersonID  *uuid.UUID
	GroupID   *uuid.UUID
	Categoria string
	Agonistic bool
}

// NewParticipation builds the registered participation for cmd.
func NewParticipation(cmd RegisterCommand, now time.Time) *Participation {
	return &Participation{
		ID:        uuid.New(),
		EventID:   cmd.EventID,
		PersonID:  cmd.PersonID,
		GroupID:   cmd.GroupID,
		AsdID:     cmd.AsdID,
		SeasonID:  cmd.SeasonID,
		Categoria: cmd.Categoria,
		Status:    StatusRegistered,
		CreatedAt: now,
	}
}
