package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Envelope statuses returned to clients.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
	StatusError   = "ERROR"
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

// Is matches another DomainError of the same kind, so a sentinel still matches
// an instance carrying its own cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// EnvelopeStatus returns FAIL for caller errors and ERROR for server faults.
func (e *DomainError) EnvelopeStatus() string {
	if e.HTTPStatus >= http.StatusInternalServerError {
		return StatusError
	}
	return StatusFail
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHENTICATED", message, http.StatusUnauthorized, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("ALREADY_EXISTS", message, http.StatusConflict, details)
}

func NewInvalidResetCode() error {
	return NewDomainError("INVALID_OR_EXPIRED_CODE", "reset code is invalid or has expired", http.StatusBadRequest, nil)
}

func NewNotVerified() error {
	return NewDomainError("NOT_VERIFIED", "reset code has not been verified", http.StatusBadRequest, nil)
}

func NewTooManyRequests(message string) error {
	return NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
}

func NewDeliveryFailed(err error) error {
	return &DomainError{
		Code:       "DELIVERY_FAILED",
		Message:    "could not deliver the reset code, try again later",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
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
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromHTTPStatus wraps transport level failures (bad routes, oversized bodies) as DomainError.
func FromHTTPStatus(status int, message string) *DomainError {
	if status >= http.StatusInternalServerError {
		return ToDomainError(errors.New(message))
	}
	code := "HTTP_ERROR"
	switch status {
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusRequestEntityTooLarge:
		code = "PAYLOAD_TOO_LARGE"
	case http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		code = "BAD_REQUEST"
	case http.StatusRequestTimeout:
		code = "REQUEST_TIMEOUT"
	}
	return NewDomainError(code, message, status, nil)
}
