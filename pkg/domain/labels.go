package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used inside document labels.
const DateLayout = "2006-01-02"

const labelSeparator = " ["

// Label renders a document status entry as "TYPE [REASON]". Both the
// eligibility computation and the cache read model store labels in this form.
func Label(docType string, reason string) string {
	return docType + labelSeparator + reason + "]"
}

// ReasonMissing is the reason for a required document with no active instance.
func ReasonMissing() string {
	return "MISSING"
}

// ReasonExpired is the reason for a document whose expiry date has passed.
func ReasonExpired(on time.Time) string {
	return "EXPIRED on " + on.Format(DateLayout)
}

// ReasonExpiring is the warning reason for a document expiring inside the warning window.
func ReasonExpiring(on time.Time) string {
	return "EXPIRING on " + on.Format(DateLayout)
}

// LabelType returns the document type prefix of a label. A label without a
// bracketed reason is treated as a bare type.
func LabelType(label string) string {
	if i := strings.Index(label, labelSeparator); i >= 0 {
		return label[:i]
	}
	return strings.TrimSpace(label)
}
