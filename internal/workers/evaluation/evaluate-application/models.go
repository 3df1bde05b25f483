// internal/workers/evaluation/evaluate-application/models.go
package evaluateapplication

type Input struct {
	EmiratesID    string                 `json:"emiratesId"`
	Track         string                 `json:"track"`
	ApplicantData map[string]interface{} `json:"applicantData"`
	Documents     map[string]string      `json:"documents,omitempty"`
}

type Output struct {
	EvaluationID string      `json:"evaluationId"`
	Outcome      string      `json:"outcome"`
	Result       interface{} `json:"result"`
}
