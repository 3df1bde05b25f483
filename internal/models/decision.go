// internal/models/decision.go
package models

// Outcome is the final result of a run.
type Outcome string

const (
	OutcomeApproved               Outcome = "Approved"
	OutcomeSoftDecline            Outcome = "SoftDecline"
	OutcomeApprovedWithConditions Outcome = "ApprovedWithConditions"
	OutcomeAdvisory               Outcome = "Advisory"
)

// Label is the wording shown to applicants.
func (o Outcome) Label() string {
	switch o {
	case OutcomeSoftDecline:
		return "Soft Decline"
	case OutcomeApprovedWithConditions:
		return "Approved with Conditions"
	default:
		return string(o)
	}
}

// Decision is immutable once returned by a supervisor.
type Decision struct {
	EvaluationID string    `json:"evaluation_id"`
	ApplicantID  string    `json:"emirates_id"`
	Track        Track     `json:"track"`
	Outcome      Outcome   `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Narrative    string    `json:"narrative,omitempty"`
	Inputs       []Verdict `json:"inputs"`
	DecidedAt    string    `json:"decided_at"`
}

// SupportPayload is the body returned for the support track.
type SupportPayload struct {
	FinancialSupportDecision string `json:"financial_support_decision"`
	Reason                   string `json:"reason"`
}

// Payload is the caller-facing result. Support returns a structured label and
// reason; enablement returns the narrative text.
func (d Decision) Payload() interface{} {
	if d.Track == TrackEnablement {
		return d.Narrative
	}
	return SupportPayload{
		FinancialSupportDecision: d.Outcome.Label(),
		Reason:                   d.Reason,
	}
}
