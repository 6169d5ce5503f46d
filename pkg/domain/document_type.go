package domain

import (
	"strings"

	dErrors "clubreg/pkg/domain-errors"
)

// DocumentType identifies a compliance document a person must hold to compete.
// Invariant: the value must be one of the supported document types.
//
// Usage: construct via ParseDocumentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentType string

// Supported document types. The agonistic and recreational required sets are disjoint.
const (
	DocumentMedicalCert      DocumentType = "MEDICAL_CERT"
	DocumentFederationCard   DocumentType = "FEDERATION_CARD"
	DocumentMedicalCertBasic DocumentType = "MEDICAL_CERT_BASIC"
	DocumentMembershipCard   DocumentType = "ASD_MEMBERSHIP_CARD"
)

// agonisticRequired lists the documents required for competitive participation.
var agonisticRequired = []DocumentType{
	DocumentMedicalCert,
	DocumentFederationCard,
}

// recreationalRequired lists the documents required for recreational participation.
var recreationalRequired = []DocumentType{
	DocumentMedicalCertBasic,
	DocumentMembershipCard,
}

// validDocumentTypes is the single source of truth for valid document types.
var validDocumentTypes = map[DocumentType]bool{
	DocumentMedicalCert:      true,
	DocumentFederationCard:   true,
	DocumentMedicalCertBasic: true,
	DocumentMembershipCard:   true,
}

// ParseDocumentType constructs a DocumentType from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "document type cannot be empty")
	}
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported document type: "+s)
	}
	return t, nil
}

// IsValid reports whether the document type is in the supported set.
func (t DocumentType) IsValid() bool {
	return validDocumentTypes[t]
}

func (t DocumentType) String() string {
	return string(t)
}

// RequiredDocuments returns the required set for the participation kind.
// The returned slice is a copy.
func RequiredDocuments(agonistic bool) []DocumentType {
	src := recreationalRequired
	if agonistic {
		src = agonisticRequired
	}
	out := make([]DocumentType, len(src))
	copy(out, src)
	return out
}
