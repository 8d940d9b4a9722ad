package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingTransitions(t *testing.T) {
	legal := map[BookingStatus][]BookingStatus{
		BOOKING_PENDING:   {BOOKING_CONFIRMED, BOOKING_CANCELLED},
		BOOKING_CONFIRMED: {BOOKING_COMPLETED, BOOKING_CANCELLED, BOOKING_REFUNDED},
		BOOKING_COMPLETED: {BOOKING_REFUNDED},
	}
	all := []BookingStatus{BOOKING_PENDING, BOOKING_CONFIRMED, BOOKING_CANCELLED, BOOKING_COMPLETED, BOOKING_REFUNDED}

	for _, from := range all {
		for _, to := range all {
			expected := false
			for _, allowed := range legal[from] {
				if allowed == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, BOOKING_CANCELLED.Terminal())
	assert.True(t, BOOKING_REFUNDED.Terminal())
	assert.False(t, BOOKING_COMPLETED.Terminal())
	assert.False(t, BookingStatus("ARCHIVED").Valid())
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("query: %w", context.DeadlineExceeded)
	err := Internal("failed to load booking", cause)

	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "INTERNAL: failed to load booking: query: context deadline exceeded", err.Error())
	assert.False(t, Internal("boom", errors.New("boom")).Retryable)

	wrapped := fmt.Errorf("service: %w", NotFound("booking %s not found", "b-1"))
	assert.True(t, IsKind(wrapped, ERR_NOT_FOUND))
	assert.Equal(t, "booking b-1 not found", AsAppError(wrapped).Message)
	assert.Equal(t, ERR_INTERNAL, AsAppError(errors.New("plain")).Kind)
	assert.Nil(t, AsAppError(nil))
}

func TestErrorKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ERR_NOT_FOUND.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ERR_INVALID_STATE.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ERR_UNAUTHORIZED.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, ERR_FORBIDDEN.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ERR_INTERNAL.HTTPStatus())
}

func TestJSONB(t *testing.T) {
	var j JSONB
	require.NoError(t, j.Scan([]byte(`{"reason":"goodwill","amount":50}`)))
	assert.Equal(t, "goodwill", j["reason"])
	assert.Equal(t, 50.0, j["amount"])

	require.NoError(t, j.Scan(`{"a":1}`))
	assert.Equal(t, 1.0, j["a"])

	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)

	v, err := JSONB{"k": "v"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, v.(string))
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 25, Pages: 3}, NewPagination(2, 10, 25))
	assert.Equal(t, int64(0), NewPagination(1, 10, 0).Pages)
}
