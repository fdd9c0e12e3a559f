package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewUpstreamUnavailableError("googleplaces", cause)
	wrapped := fmt.Errorf("discover: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrUpstreamUnavailable))
	assert.False(t, stderrors.Is(wrapped, ErrMisconfigured))
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded), "cause is preserved")

	stdErr, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeUpstreamUnavailable, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeMisconfigured, CodeOf(NewMisconfiguredError("no key")))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"upstream", NewUpstreamUnavailableError("es", stderrors.New("503")), "DISCOVERY_UPSTREAM_UNAVAILABLE", 3},
		{"misconfigured", NewMisconfiguredError("missing key"), "DISCOVERY_MISCONFIGURED", 0},
		{"invalid request", NewInvalidRequestError("latitude out of range"), "DISCOVERY_INVALID_REQUEST", 0},
		{"unmapped", NewWeightsInvalidError("bad curve", nil), "WEIGHTS_INVALID", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.wantCode, vars["errorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeMisconfigured))
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeWeightsInvalid))
	assert.Equal(t, "UPSTREAM", GetErrorCategory(ErrCodeUpstreamUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeParseError))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeUpstreamUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidCandidate))
}

func TestStandardError_Message(t *testing.T) {
	err := NewInvalidRequestError("unknown category \"bar\"")
	assert.Contains(t, err.Error(), "INVALID_REQUEST")
	assert.Contains(t, err.Error(), "unknown category")

	err.WithMetadata("field", "category")
	assert.Equal(t, "category", err.Metadata["field"])
}
