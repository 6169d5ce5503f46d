// Package eligibility holds the authoritative document-based eligibility rule.
// It is pure: callers load documents and supply the clock.
package eligibility

import (
	"time"

	"clubreg/internal/compliance/models"
	"clubreg/pkg/domain"
)

// Compute evaluates every required type against the active documents.
// A missing or expired document blocks; one expiring inside window warns.
// Blockers and warnings follow the order of required.
func Compute(required []domain.DocumentType, active map[domain.DocumentType]models.Document, now time.Time, window time.Duration) models.Verdict {
	var blockers, warnings []string
	for _, docType := range required {
		doc, ok := active[docType]
		if !ok {
			blockers = append(blockers, domain.Label(docType.String(), domain.ReasonMissing()))
			continue
		}
		switch doc.StatusAt(now, window) {
		case models.StatusExpired:
			blockers = append(blockers, domain.Label(docType.String(), domain.ReasonExpired(doc.ExpiresOn)))
		case models.StatusExpiringSoon:
			warnings = append(warnings, domain.Label(docType.String(), domain.ReasonExpiring(doc.ExpiresOn)))
		}
	}

	switch {
	case len(blockers) > 0:
		return models.Ineligible(blockers, warnings)
	case len(warnings) > 0:
		return models.ExpiringSoon(warnings)
	default:
		return models.Eligible()
	}
}

// Index keys documents by type. When several share a type the most recently
// recorded wins.
func Index(docs []models.Document) map[domain.DocumentType]models.Document {
	out := make(map[domain.DocumentType]models.Document, len(docs))
	for _, d := range docs {
		if prev, ok := out[d.Type]; ok && prev.RecordedAt.After(d.RecordedAt) {
			continue
		}
		out[d.Type] = d
	}
	return out
}
