// Package domain defines the core domain models for statehttpd.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format HD-{AREA}-{HTTP status}{sequence}.
type DomainError struct {
	Code    string // Error code (e.g., "HD-HTTP-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// HTTPStatus returns the HTTP status encoded in the error code.
// Codes without a recognizable status map to 500.
func (e *DomainError) HTTPStatus() int {
	return codeToHTTPStatus(e.Code)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HTTPStatus maps any error to a response status.
// Non-domain errors are internal errors.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// codeToHTTPStatus reads the first three digits of the numeric suffix.
func codeToHTTPStatus(code string) int {
	n := len(code)
	if n < 4 {
		return http.StatusInternalServerError
	}
	status, err := strconv.Atoi(code[n-4 : n-1])
	if err != nil || status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// Authentication errors.
var (
	// ErrAuthRequired indicates neither a valid session nor credentials were supplied.
	ErrAuthRequired = NewDomainError("HD-AUTH-4010", "authentication required")

	// ErrAuthInvalid indicates the supplied credentials did not match.
	ErrAuthInvalid = NewDomainError("HD-AUTH-4011", "invalid credentials")

	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = NewDomainError("HD-AUTH-4012", "session not found")
)

// Request errors.
var (
	// ErrNotFound indicates no endpoint matched the request.
	ErrNotFound = NewDomainError("HD-HTTP-4040", "not found")

	// ErrMethodNotAllowed indicates the endpoint does not accept the method.
	ErrMethodNotAllowed = NewDomainError("HD-HTTP-4050", "method not allowed")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("HD-REQ-4000", "bad request")

	// ErrVariableMissing indicates a required request variable was not supplied.
	ErrVariableMissing = NewDomainError("HD-REQ-4001", "variable not found")

	// ErrVariableInvalid indicates a request variable could not be converted.
	ErrVariableInvalid = NewDomainError("HD-REQ-4002", "unable to convert variable")

	// ErrInvalidDocument indicates the structured request body could not be parsed.
	ErrInvalidDocument = NewDomainError("HD-REQ-4003", "invalid structured document")

	// ErrBodyTooLarge indicates a POST body over the configured limit.
	ErrBodyTooLarge = NewDomainError("HD-REQ-4130", "request body too large")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("HD-REQ-4290", "too many requests")
)

// System errors.
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("HD-SYS-5000", "internal server error")

	// ErrSummarize indicates a value could not be summarized.
	ErrSummarize = NewDomainError("HD-SUM-5001", "unable to summarize")

	// ErrInvalidFieldSpec indicates a summarization field specification is malformed.
	ErrInvalidFieldSpec = NewDomainError("HD-SUM-5002", "invalid field specification")

	// ErrTLSLoad indicates the certificate or key could not be loaded.
	ErrTLSLoad = NewDomainError("HD-TLS-5001", "unable to load tls material")

	// ErrStorage indicates a session persistence error.
	ErrStorage = NewDomainError("HD-STORE-5001", "storage error")

	// ErrServerRunning indicates a lifecycle call made while already started.
	ErrServerRunning = NewDomainError("HD-SYS-5002", "server already running")
)
