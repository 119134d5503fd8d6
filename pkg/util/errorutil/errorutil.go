package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes exposed to API callers.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	CodeTimeout        = "TIMEOUT"
	CodeDatabase       = "DATABASE_ERROR"
	CodeCache          = "CACHE_ERROR"
	CodeUnauthorized   = "AUTHENTICATION_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

const genericMessage = "An unexpected error occurred"

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
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource, id string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s with ID %s not found", resource, id),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"resource_type": resource, "resource_id": id},
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimitError(message string) error {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return NewDomainError(CodeRateLimit, message, http.StatusTooManyRequests, nil)
}

// NewTimeoutError reports an operation that exceeded its deadline.
func NewTimeoutError(operation string, timeoutSeconds float64, err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    fmt.Sprintf("Operation '%s' timed out after %gs", operation, timeoutSeconds),
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"operation": operation, "timeout_seconds": timeoutSeconds},
		Err:        err,
	}
}

func NewDatabaseError(message string, details map[string]any, err error) error {
	return &DomainError{
		Code:       CodeDatabase,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		Err:        err,
	}
}

func NewCacheError(message string, details map[string]any, err error) error {
	return &DomainError{
		Code:       CodeCache,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewNotImplemented(feature string) error {
	return NewDomainError(CodeNotImplemented, "Not implemented", http.StatusNotImplemented,
		map[string]any{"feature": feature})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    genericMessage,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError. Unclassified errors become
// an internal error that keeps the cause for logging only.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// the bound is unknown here, so the message carries no duration
		return &DomainError{
			Code:       CodeTimeout,
			Message:    "Operation 'request' timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Details:    map[string]any{"operation": "request"},
			Err:        err,
		}
	}
	return NewInternalError(err).(*DomainError)
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch err.Code {
	case http.StatusNotFound:
		return NewDomainError(CodeNotFound, err.Message, err.Code, nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return NewDomainError(CodeValidation, err.Message, err.Code, nil)
	case http.StatusTooManyRequests:
		return NewRateLimitError(err.Message).(*DomainError)
	case http.StatusUnauthorized:
		return NewDomainError(CodeUnauthorized, err.Message, err.Code, nil)
	}
	if err.Code >= http.StatusInternalServerError {
		return &DomainError{Code: CodeInternal, Message: genericMessage, HTTPStatus: err.Code, Err: err}
	}
	return NewDomainError("HTTP_ERROR", err.Message, err.Code, nil)
}
