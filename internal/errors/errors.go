// Package errors defines the error taxonomy for the reporter service.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tezos-reporter/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategoryProvider represents indexer/provider errors
	CategoryProvider ErrorCategory = "provider"
	// CategorySystem represents internal errors (5xx)
	CategorySystem ErrorCategory = "system"
)

// Error codes surfaced to the presentation layer
const (
	CodeInvalidAddress    = "INVALID_ADDRESS"
	CodeNoAddressSelected = "NO_ADDRESS_SELECTED"
	CodeInvalidWindow     = "INVALID_WINDOW"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeFetchFailed       = "FETCH_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire-level ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidAddressError reports a custom token that fails the Tezos
// address-format check. Not retried; surfaced verbatim to the user.
func NewInvalidAddressError(token string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidAddress,
		Message:    fmt.Sprintf("invalid Tezos address: %s", token),
		Details: map[string]interface{}{
			"address": token,
		},
	}
}

// NewNoAddressSelectedError reports an empty resolved address set
func NewNoAddressSelectedError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeNoAddressSelected,
		Message:    "no address selected",
	}
}

// NewInvalidWindowError reports a malformed report window
func NewInvalidWindowError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidWindow,
		Message:    fmt.Sprintf("invalid report window: %s", reason),
	}
}

// NewInvalidParameterError reports a malformed request parameter
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewFetchError reports indexer retry exhaustion for one address. The whole
// report aborts; partial totals are never rendered as if complete.
func NewFetchError(address string, upstreamStatus int, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeFetchFailed,
		Message:    fmt.Sprintf("failed to fetch transactions for %s", address),
		Cause:      cause,
		Details: map[string]interface{}{
			"address":        address,
			"upstreamStatus": upstreamStatus,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize wraps an arbitrary error into a CategorizedError
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code string) bool {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Code == code
	}
	return false
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
