package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatusAndCode(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{NewNotFound("Ticket", "abc"), CodeNotFound, http.StatusNotFound},
		{NewConflict("dup", nil), CodeConflict, http.StatusConflict},
		{NewRateLimitError(""), CodeRateLimit, http.StatusTooManyRequests},
		{NewTimeoutError("get_ticket", 2, nil), CodeTimeout, http.StatusGatewayTimeout},
		{NewDatabaseError("db", nil, errors.New("boom")), CodeDatabase, http.StatusInternalServerError},
		{NewCacheError("cache", nil, errors.New("boom")), CodeCache, http.StatusInternalServerError},
		{NewUnauthorized("no"), CodeUnauthorized, http.StatusUnauthorized},
		{NewNotImplemented("ai_chat"), CodeNotImplemented, http.StatusNotImplemented},
		{NewInternalError(errors.New("x")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		require.NotNil(t, de)
		assert.Equal(t, tc.code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus)
		assert.True(t, IsCode(tc.err, tc.code))
	}
}

func TestNotFoundDetails(t *testing.T) {
	de := ToDomainError(NewNotFound("Ticket", "42"))
	assert.Equal(t, "Ticket with ID 42 not found", de.Message)
	assert.Equal(t, map[string]any{"resource_type": "Ticket", "resource_id": "42"}, de.Details)
}

func TestWrappedDomainErrorIsPreserved(t *testing.T) {
	inner := NewConflict("ticket number collision", map[string]any{"ticket_number": "TKT-000001"})
	wrapped := fmt.Errorf("create ticket: %w", inner)

	de := ToDomainError(wrapped)
	assert.Equal(t, CodeConflict, de.Code)
	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(wrapped, CodeNotFound))
}

func TestUnclassifiedErrorHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused at 10.0.0.3")
	de := ToDomainError(cause)

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "An unexpected error occurred", de.Message)
	assert.NotContains(t, de.Message, "10.0.0.3")
	assert.ErrorIs(t, de, cause)
}

func TestDeadlineExceededMapsToTimeout(t *testing.T) {
	de := ToDomainError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, CodeTimeout, de.Code)
	assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus)
	assert.Equal(t, "Operation 'request' timed out", de.Message)
	assert.NotContains(t, de.Details, "timeout_seconds")
	assert.ErrorIs(t, de, context.DeadlineExceeded)
}

func TestFiberErrorsMapToStatus(t *testing.T) {
	assert.Equal(t, CodeNotFound, ToDomainError(fiber.ErrNotFound).Code)
	assert.Equal(t, CodeValidation, ToDomainError(fiber.ErrBadRequest).Code)
	assert.Equal(t, CodeRateLimit, ToDomainError(fiber.ErrTooManyRequests).Code)

	de := ToDomainError(fiber.ErrMethodNotAllowed)
	assert.Equal(t, http.StatusMethodNotAllowed, de.HTTPStatus)

	de = ToDomainError(fiber.ErrBadGateway)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "An unexpected error occurred", de.Message)
}

func TestIsCodeOnNil(t *testing.T) {
	assert.False(t, IsCode(nil, CodeNotFound))
	assert.Nil(t, ToDomainError(nil))
}
