package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"clubreg/internal/compliance/service"
	"clubreg/pkg/domain"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/platform/validation"

	"github.com/google/uuid"
)

// eligibilityQuery is bound from GET /eligibility query parameters.
type eligibilityQuery struct {
	PersonID  string `json:"personId" validate:"required,uuid"`
	AsdID     string `json:"asdId" validate:"required,uuid"`
	Agonistic string `json:"agonistic" validate:"omitempty,boolean"`
}

func parseEligibilityQuery(q url.Values) (personID, asdID uuid.UUID, agonistic bool, err error) {
	raw := eligibilityQuery{
		PersonID:  strings.TrimSpace(q.Get("personId")),
		AsdID:     strings.TrimSpace(q.Get("asdId")),
		Agonistic: strings.TrimSpace(q.Get("agonistic")),
	}
	if err = validation.Struct(raw); err != nil {
		return
	}
	personID = uuid.MustParse(raw.PersonID)
	asdID = uuid.MustParse(raw.AsdID)
	if raw.Agonistic != "" {
		agonistic, _ = strconv.ParseBool(raw.Agonistic)
	}
	return
}

// RecordDocumentRequest is the body of POST /documents.
type RecordDocumentRequest struct {
	PersonID     string `json:"personId" validate:"required,uuid"`
	AsdID        string `json:"asdId" validate:"required,uuid"`
	DocumentType string `json:"documentType" validate:"required,max=64"`
	IssuedOn     string `json:"issuedOn" validate:"omitempty,datetime=2006-01-02"`
	ExpiresOn    string `json:"expiresOn" validate:"required,datetime=2006-01-02"`

	docType domain.DocumentType
}

func (r *RecordDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Struct(r); err != nil {
		return err
	}
	docType, err := domain.ParseDocumentType(r.DocumentType)
	if err != nil {
		return err
	}
	r.docType = docType
	return nil
}

// Command converts a validated request.
func (r *RecordDocumentRequest) Command() service.RecordDocumentCommand {
	cmd := service.RecordDocumentCommand{
		PersonID: uuid.MustParse(r.PersonID),
		AsdID:    uuid.MustParse(r.AsdID),
		Type:     r.docType,
	}
	cmd.ExpiresOn, _ = time.Parse(domain.DateLayout, r.ExpiresOn)
	if r.IssuedOn != "" {
		issued, _ := time.Parse(domain.DateLayout, r.IssuedOn)
		cmd.IssuedOn = &issued
	}
	return cmd
}
