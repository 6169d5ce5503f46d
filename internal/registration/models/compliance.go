package models

// EligibilityResponse is the compliance authority's answer for one
// (person, ASD, agonistic) check.
type EligibilityResponse struct {
	Eligible          bool     `json:"eligible"`
	BlockingDocuments []string `json:"blockingDocuments"`
	Warnings          []string `json:"warnings"`
}

// ComplianceCallError is the only error the compliance verifier returns.
// Transport failures, timeouts, non-success statuses, empty bodies and an
// open circuit all surface as this type so callers can fail closed.
type ComplianceCallError struct {
	Reason string
	Err    error
}

func (e *ComplianceCallError) Error() string {
	if e.Err != nil {
		return "compliance call failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "compliance call failed: " + e.Reason
}

func (e *ComplianceCallError) Unwrap() error {
	return e.Err
}
