package api

// EvaluateRequest is the body of the evaluate endpoints.
type EvaluateRequest struct {
	EmiratesID    string                 `json:"emirates_id"`
	ApplicantData map[string]interface{} `json:"applicant_data"`
	Documents     map[string]string      `json:"documents,omitempty"`
}

// EvaluateResponse wraps the track-specific payload.
type EvaluateResponse struct {
	Result interface{} `json:"result"`
}

// SubmitRequest stores an already computed evaluation result.
type SubmitRequest struct {
	EmiratesID       string      `json:"emirates_id"`
	EvaluationResult interface{} `json:"evaluation_result"`
}

type SubmitResponse struct {
	Status     string `json:"status"`
	InsertedID int64  `json:"inserted_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
