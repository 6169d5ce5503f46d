package handler

import (
	"strings"

	"github.com/google/uuid"

	"clubreg/internal/registration/models"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/platform/validation"
)

// RegisterParticipantRequest is the body of POST /events/{eventId}/participants.
// Exactly one of personId and groupId must be present.
type RegisterParticipantRequest struct {
	AsdID     string `json:"asdId" validate:"required,uuid"`
	SeasonID  string `json:"seasonId" validate:"required,uuid"`
	PersonID  string `json:"personId,omitempty" validate:"omitempty,uuid,excluded_with=GroupID"`
	GroupID   string `json:"groupId,omitempty" validate:"required_without=PersonID,omitempty,uuid"`
	Categoria string `json:"categoria" validate:"required,max=64"`
	Agonistic bool   `json:"agonistic"`
}

func (r *RegisterParticipantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.GroupID = strings.TrimSpace(r.GroupID)
	r.Categoria = strings.TrimSpace(r.Categoria)
	return validation.Struct(r)
}

// Command converts a validated request for the given event.
func (r *RegisterParticipantRequest) Command(eventID uuid.UUID) models.RegisterCommand {
	cmd := models.RegisterCommand{
		EventID:   eventID,
		AsdID:     uuid.MustParse(r.AsdID),
		SeasonID:  uuid.MustParse(r.SeasonID),
		Categoria: r.Categoria,
		Agonistic: r.Agonistic,
	}
	if r.PersonID != "" {
		id := uuid.MustParse(r.PersonID)
		cmd.PersonID = &id
	}
	if r.GroupID != "" {
		id := uuid.MustParse(r.GroupID)
		cmd.GroupID = &id
	}
	return cmd
}
