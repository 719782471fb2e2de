package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrConflict, ErrUnavailable,
		ErrUpstream, ErrEventRejected, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	appErr := &AppError{Code: "UPSTREAM_ERROR", Message: "storefront call failed", Err: inner}
	assert.Contains(t, appErr.Error(), "UPSTREAM_ERROR")
	assert.Contains(t, appErr.Error(), "storefront call failed")
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "session not found"}
	assert.Equal(t, "NOT_FOUND: session not found", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

func TestAppError_WithErr_KeepsSentinel(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Upstream("cart fetch failed").WithErr(cause)

	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestAppError_WithErr_NilIsNoop(t *testing.T) {
	err := Upstream("cart fetch failed")
	same := err.WithErr(nil)
	assert.Same(t, err, same)
	assert.True(t, errors.Is(same, ErrUpstream))
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("session", "abc-123")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "session")
	assert.Contains(t, err.Message, "abc-123")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("cart_id is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestEventRejected(t *testing.T) {
	err := EventRejected("uninitialized", "NOTE_UPDATE")
	assert.Equal(t, "EVENT_REJECTED", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Contains(t, err.Message, "uninitialized")
	assert.Contains(t, err.Message, "NOTE_UPDATE")
	assert.True(t, errors.Is(err, ErrEventRejected))
}

func TestUpstream(t *testing.T) {
	err := Upstream("storefront returned 500")
	assert.Equal(t, "UPSTREAM_ERROR", err.Code)
	assert.Equal(t, http.StatusBadGateway, err.Status)
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("circuit open")
	assert.Equal(t, "SERVICE_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
}

func TestInternal(t *testing.T) {
	cause := fmt.Errorf("nil pointer somewhere")
	err := Internal(cause)
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, cause))
}

// --- HTTP status resolution ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error carries its own status", NotFound("session", "x"), http.StatusNotFound},
		{"wrapped not found sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped invalid input sentinel", fmt.Errorf("parse: %w", ErrInvalidInput), http.StatusBadRequest},
		{"wrapped event rejected sentinel", fmt.Errorf("send: %w", ErrEventRejected), http.StatusConflict},
		{"wrapped upstream sentinel", fmt.Errorf("call: %w", ErrUpstream), http.StatusBadGateway},
		{"wrapped unavailable sentinel", fmt.Errorf("ping: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{"unknown error maps to 500", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
