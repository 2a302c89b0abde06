package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes for structured error handling.
const (
	ErrCodeAuth       = "AUTH_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeRateLimit  = "RATE_LIMIT"
	ErrCodeServer     = "SERVER_ERROR"
)

// User-visible messages.
const (
	NetworkErrorMessage = "Network error. Please check your internet connection."
	MissingTokenMessage = "Token missing in login response"
)

// Sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMissingToken     = errors.New("token missing in response")
	ErrStorageNotFound  = errors.New("storage key not found")
)

// APIError is a response the server sent back with a failure status.
type APIError struct {
	Code       string `json:"code,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the server rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NetworkError is a request that never produced a response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError is a local check that failed before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrorMessage turns err into the string a view shows. Precedence: the
// server-provided message, the network-error sentinel, the fallback for
// server responses without a message, then the raw error text.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		return fallback
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return NetworkErrorMessage
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// StatusMessage returns a message describing the HTTP status of an API
// error, or fallback when err carries no known status.
func StatusMessage(err error, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		return "Validation error. Please check your input."
	case http.StatusUnauthorized:
		return "Invalid credentials. Please try again."
	case http.StatusForbidden:
		return "You don't have permission to perform this action."
	case http.StatusNotFound:
		return "Resource not found."
	case http.StatusConflict:
		return "This email is already registered. Please use a different email or log in."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	default:
		return fallback
	}
}
