// Package errors provides standardized error handling for discovery operations and
// BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Provider credential missing; retrying cannot help.
	ErrCodeMisconfigured ErrorCode = "MISCONFIGURED"
	// Transport failed, timed out or the caller cancelled.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// A candidate lacked its identifier. Recovered inside ranking, never surfaced.
	ErrCodeInvalidCandidate ErrorCode = "INVALID_CANDIDATE"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeWeightsInvalid   ErrorCode = "WEIGHTS_INVALID"
	ErrCodeParseError       ErrorCode = "PARSE_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Is matches any StandardError carrying the same code, so callers can compare
// against the sentinels below with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrMisconfigured       = &StandardError{Code: ErrCodeMisconfigured}
	ErrUpstreamUnavailable = &StandardError{Code: ErrCodeUpstreamUnavailable}
	ErrInvalidCandidate    = &StandardError{Code: ErrCodeInvalidCandidate}
	ErrInvalidRequest      = &StandardError{Code: ErrCodeInvalidRequest}
	ErrWeightsInvalid      = &StandardError{Code: ErrCodeWeightsInvalid}
)

// AsStandard extracts the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error's code, or INTERNAL_ERROR when it is not a StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewMisconfiguredError reports a missing or unusable provider credential.
func NewMisconfiguredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMisconfigured,
		Message:   "Search provider is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError wraps a transport failure, timeout or cancellation.
func NewUpstreamUnavailableError(provider string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Search provider '%s' unavailable", provider),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewInvalidCandidateError describes a candidate dropped during ranking.
func NewInvalidCandidateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCandidate,
		Message:   "Candidate is missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid discovery request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewWeightsInvalidError(details string, err error) *StandardError {
	if err != nil && details == "" {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeWeightsInvalid,
		Message:   "Scoring weights are invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMisconfigured:       "DISCOVERY_MISCONFIGURED",
	ErrCodeUpstreamUnavailable: "DISCOVERY_UPSTREAM_UNAVAILABLE",
	ErrCodeInvalidRequest:      "DISCOVERY_INVALID_REQUEST",
	ErrCodeParseError:          "DISCOVERY_PARSE_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable:
		return 3
	default:
		return 0 // configuration and request errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MISCONFIGURED") || strings.Contains(codeStr, "WEIGHTS"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
