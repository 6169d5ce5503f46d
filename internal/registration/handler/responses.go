package handler

import (
	"time"

	"clubreg/internal/registration/models"
)

type RegisteredResponse struct {
	ParticipationID string `json:"participationId"`
	EventID         string `json:"eventId"`
}

type IneligibleResponse struct {
	Error             string   `json:"error"`
	BlockingDocuments []string `json:"blockingDocuments"`
}

type AlreadyRegisteredResponse struct {
	Error                   string `json:"error"`
	ExistingParticipationID string `json:"existingParticipationId"`
}

type UnavailableResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type ParticipationResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	PersonID  *string   `json:"personId,omitempty"`
	GroupID   *string   `json:"groupId,omitempty"`
	AsdID     string    `json:"asdId"`
	SeasonID  string    `json:"seasonId"`
	Categoria string    `json:"categoria"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type ParticipantsResponse struct {
	Participants []ParticipationResponse `json:"participants"`
}

func fromParticipation(p *models.Participation) ParticipationResponse {
	resp := ParticipationResponse{
		ID:        p.ID.String(),
		EventID:   p.EventID.String(),
		AsdID:     p.AsdID.String(),
		SeasonID:  p.SeasonID.String(),
		Categoria: p.Categoria,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
	if p.PersonID != nil {
		id := p.PersonID.String()
		resp.PersonID = &id
	}
	if p.GroupID != nil {
		id := p.GroupID.String()
		resp.GroupID = &id
	}
	return resp
}
