// internal/models/notification.go
package models

// DecisionEvent is published on SNS and as a Zeebe message once a decision
// is final. Profile values and verdict raw text are never included.
type DecisionEvent struct {
	EvaluationID string `json:"evaluationId"`
	EmiratesID   string `json:"emiratesId"`
	Track        string `json:"track"`
	Outcome      string `json:"outcome"`
	Label        string `json:"label"`
	Reason       string `json:"reason,omitempty"`
	DecidedAt    string `json:"decidedAt"`
}

// NewDecisionEvent projects a decision onto its public event.
func NewDecisionEvent(d Decision) DecisionEvent {
	return DecisionEvent{
		EvaluationID: d.EvaluationID,
		EmiratesID:   d.ApplicantID,
		Track:        string(d.Track),
		Outcome:      string(d.Outcome),
		Label:        d.Outcome.Label(),
		Reason:       d.Reason,
		DecidedAt:    d.DecidedAt,
	}
}

// EvaluationRecord is a row of social_evaluation_status.
type EvaluationRecord struct {
	ID               int64                  `json:"id"`
	EmiratesID       string                 `json:"emirates_id"`
	EvaluationResult map[string]interface{} `json:"evaluation_result"`
	CreatedAt        string                 `json:"created_at,omitempty"`
}
