package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("HD-TEST-1000", "test message"),
			expected: "[HD-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("HD-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[HD-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("HD-TEST-1000", "message 1")
	err2 := NewDomainError("HD-TEST-1000", "message 2")
	err3 := NewDomainError("HD-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ErrStorage.WithCause(cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if errors.Unwrap(ErrStorage) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetailsKeepsOriginal(t *testing.T) {
	withDetails := ErrVariableMissing.WithDetails("variable 'x' not found")

	if ErrVariableMissing.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if !errors.Is(withDetails, ErrVariableMissing) {
		t.Error("copy should still match original code")
	}
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrNotFound)

	if !IsDomainError(wrapped, "") {
		t.Error("IsDomainError(wrapped, \"\") = false, want true")
	}
	if !IsDomainError(wrapped, "HD-HTTP-4040") {
		t.Error("IsDomainError should match by code through wrapping")
	}
	if IsDomainError(wrapped, "HD-SYS-5000") {
		t.Error("IsDomainError should not match a different code")
	}
	if IsDomainError(errors.New("plain"), "") {
		t.Error("IsDomainError should be false for plain errors")
	}
	if got := GetErrorCode(wrapped); got != "HD-HTTP-4040" {
		t.Errorf("GetErrorCode() = %q, want %q", got, "HD-HTTP-4040")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"auth", ErrAuthRequired, http.StatusUnauthorized},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"validation", ErrVariableInvalid, http.StatusBadRequest},
		{"document", ErrInvalidDocument, http.StatusBadRequest},
		{"internal", ErrInternalServer, http.StatusInternalServerError},
		{"summarize", ErrSummarize, http.StatusInternalServerError},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"body too large", ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"malformed code", NewDomainError("X", "x"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("ctx: %w", ErrAuthInvalid), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
