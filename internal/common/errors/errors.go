// Package errors defines the evaluation error taxonomy shared by every layer
// and its translation to HTTP and BPMN.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode identifies one kind of the external taxonomy.
type ErrorCode string

const (
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeUpstream             ErrorCode = "UPSTREAM_ERROR"
	ErrCodeSchema               ErrorCode = "SCHEMA_ERROR"
	ErrCodeDelegation           ErrorCode = "DELEGATION_ERROR"
	ErrCodeTimeout              ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
	ErrCodeEvaluationInProgress ErrorCode = "EVALUATION_IN_PROGRESS"
)

// StandardError is the structured error every component returns for a
// taxonomy kind. Details is for logs only; Message is safe for callers.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a diagnostic key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// NewValidationError reports a malformed or incomplete request. The message
// is returned to the caller verbatim.
func NewValidationError(message string) *StandardError {
	return newError(ErrCodeValidation, message, nil, false)
}

// NewUpstreamError reports a capability that stayed unreachable after retries.
func NewUpstreamError(capability string, err error) *StandardError {
	return newError(ErrCodeUpstream, fmt.Sprintf("%s unavailable", capability), err, true).
		WithMetadata("capability", capability)
}

// NewSchemaError reports engine output that could not be coerced into the
// verdict schema. rawText is kept for diagnostics only.
func NewSchemaError(kind string, rawText string, err error) *StandardError {
	return newError(ErrCodeSchema, fmt.Sprintf("%s verdict did not match schema", kind), err, false).
		WithMetadata("kind", kind).
		WithMetadata("rawText", rawText)
}

// NewDelegationError reports an exhausted delegation round budget.
func NewDelegationError(limit int) *StandardError {
	return newError(ErrCodeDelegation, fmt.Sprintf("delegation round limit %d exceeded", limit), nil, false).
		WithMetadata("maxRounds", limit)
}

// NewTimeoutError reports an exceeded deadline.
func NewTimeoutError(scope string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("%s deadline exceeded", scope), err, true).
		WithMetadata("scope", scope)
}

// NewInternalError wraps anything unexpected.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "unexpected failure", err, false)
}

// NewEvaluationInProgressError reports a second concurrent evaluation for the
// same applicant.
func NewEvaluationInProgressError(applicantID string) *StandardError {
	return newError(ErrCodeEvaluationInProgress, "an evaluation for this applicant is already running", nil, false).
		WithMetadata("applicantId", applicantID)
}

// AsStandard extracts the first StandardError in the chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Kind returns the taxonomy code of err, INTERNAL_ERROR when err carries none.
func Kind(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if se, ok := AsStandard(err); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// Is reports whether err belongs to the given kind.
func Is(err error, code ErrorCode) bool {
	return err != nil && Kind(err) == code
}

// Normalize guarantees a StandardError: known kinds pass through, anything
// else becomes INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if se, ok := AsStandard(err); ok {
		return se
	}
	return NewInternalError(err)
}

// HTTPStatus maps a kind to the status returned at the HTTP edge.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeEvaluationInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text a caller sees. Internal diagnostics never leave
// the process except for validation messages, which describe the caller's own
// input.
func PublicMessage(err error) string {
	se := Normalize(err)
	switch se.Code {
	case ErrCodeValidation:
		return se.Message
	case ErrCodeEvaluationInProgress:
		return "Evaluation already in progress"
	case ErrCodeTimeout:
		return "Evaluation timed out"
	default:
		return "Internal processing error"
	}
}

// GetRetryCount returns how many workflow retries a kind deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstream:
		return 3
	case ErrCodeTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode reports whether a kind is worth retrying.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups kinds for dashboards.
func GetErrorCategory(code ErrorCode) string {
	switch {
	case code == ErrCodeValidation || code == ErrCodeEvaluationInProgress:
		return "CLIENT"
	case code == ErrCodeUpstream || code == ErrCodeTimeout:
		return "UPSTREAM"
	case code == ErrCodeSchema || code == ErrCodeDelegation:
		return "ORCHESTRATION"
	case strings.HasSuffix(string(code), "_ERROR"):
		return "INTERNAL"
	default:
		return "OTHER"
	}
}

// BPMNError is the error thrown to the Zeebe workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables attached to a failed or thrown job.
// Details are deliberately not included; they may carry engine output.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ConvertToBPMNError converts a StandardError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retryable := stdErr.Retryable && IsRetryableErrorCode(stdErr.Code)
	retries := 0
	if retryable {
		retries = GetRetryCount(stdErr.Code)
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   PublicMessage(stdErr),
		Details:   stdErr.Details,
		Retryable: retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"errorCategory": GetErrorCategory(stdErr.Code),
			"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}
