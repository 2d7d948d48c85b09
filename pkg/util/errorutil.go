package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes produced by the routing engine. The web layer maps these to
// HTTP statuses; the engine itself only ever returns the typed value.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidState           = "INVALID_STATE"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeForbidden              = "FORBIDDEN"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeNoEngineerAvailable    = "NO_ENGINEER_AVAILABLE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeUnknownUser            = "UNKNOWN_USER"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeConflict               = "CONFLICT"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewInvalidState(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, details)
}

func NewIllegalTransition(message string, details map[string]any) error {
	return NewDomainError(CodeIllegalTransition, message, http.StatusConflict, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewNoEngineerAvailable signals a recoverable assignment miss: the ticket
// stays OPEN and a later retry can succeed once engineers are registered.
func NewNoEngineerAvailable() error {
	return NewDomainError(CodeNoEngineerAvailable, "no engineer available", http.StatusServiceUnavailable, nil)
}

// NewConcurrentModification reports that a competing writer won the race.
func NewConcurrentModification(resource string, details map[string]any) error {
	return NewDomainError(CodeConcurrentModification, fmt.Sprintf("%s modified concurrently", resource), http.StatusConflict, details)
}

func NewUnknownUser(userID string) error {
	return NewDomainError(CodeUnknownUser, "unknown user", http.StatusNotFound, map[string]any{"user_id": userID})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf returns the error code, or empty for nil / untyped errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}

func MapError(err error) error {
	return ToDomainError(err)
}
