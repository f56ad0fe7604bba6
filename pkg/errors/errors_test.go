package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrInternal,
		ErrStoreUnavailable, ErrIndexUnavailable, ErrSearchBackend,
		ErrConsistencyGap, ErrPaymentService, ErrCircuitOpen,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("db gone")}
	assert.Equal(t, "INTERNAL_ERROR: boom: db gone", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "game not found"}
	assert.Equal(t, "NOT_FOUND: game not found", bare.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("game", "abc-123")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "abc-123")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBackendWrappers_PreserveBothCauses(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
		code     string
	}{
		{"store", StoreUnavailable("create game", cause), ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"index", IndexUnavailable("index game", cause), ErrIndexUnavailable, http.StatusServiceUnavailable, "INDEX_UNAVAILABLE"},
		{"search", SearchBackend("search games", cause), ErrSearchBackend, http.StatusBadGateway, "SEARCH_BACKEND_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, tt.err, cause)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestPaymentService(t *testing.T) {
	err := PaymentService("payment service returned 500", fmt.Errorf("upstream"))
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Equal(t, "PAYMENT_SERVICE_ERROR", Code(err))
	assert.ErrorIs(t, err, ErrPaymentService)

	noCause := PaymentService("payment declined", nil)
	assert.ErrorIs(t, noCause, ErrPaymentService)
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("parse: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("auth: %w", ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("auth: %w", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("pay: %w", ErrCircuitOpen), http.StatusServiceUnavailable},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load game")
	assert.Equal(t, "load game: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
