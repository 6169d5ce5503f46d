package handler

import (
	"clubreg/internal/compliance/models"
	"clubreg/pkg/domain"
)

// EligibilityResponse is the wire shape of GET /eligibility. Business
// ineligibility is a 200 with eligible=false.
type EligibilityResponse struct {
	Eligible          bool     `json:"eligible"`
	BlockingDocuments []string `json:"blockingDocuments"`
	Warnings          []string `json:"warnings"`
}

func fromVerdict(v models.Verdict) EligibilityResponse {
	return EligibilityResponse{
		Eligible:          v.IsEligible(),
		BlockingDocuments: nonNil(v.Blockers),
		Warnings:          nonNil(v.Warnings),
	}
}

// DocumentResponse describes a recorded document.
type DocumentResponse struct {
	ID           string `json:"id"`
	PersonID     string `json:"personId"`
	AsdID        string `json:"asdId"`
	DocumentType string `json:"documentType"`
	ExpiresOn    string `json:"expiresOn"`
}

func fromDocument(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID.String(),
		PersonID:     d.PersonID.String(),
		AsdID:        d.AsdID.String(),
		DocumentType: d.Type.String(),
		ExpiresOn:    d.ExpiresOn.Format(domain.DateLayout),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
