package clienterrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport_DeadlineExceeded(t *testing.T) {
	err := FromTransport(fmt.Errorf("do request: %w", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "TIMEOUT", err.Code)
}

func TestFromTransport_NetErrorTimeout(t *testing.T) {
	err := FromTransport(timeoutErr{})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFromTransport_ConnectionRefused(t *testing.T) {
	err := FromTransport(errors.New("dial tcp 127.0.0.1:5050: connect: connection refused"))

	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 0, err.Status)
}

func TestFromStatus_Taxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthentication},
		{"forbidden", http.StatusForbidden, ErrAuthentication},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
		{"internal", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
		{"teapot", http.StatusTeapot, ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(tt.status, "boom", nil)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestFromStatus_ValidationFields(t *testing.T) {
	fields := map[string]string{"email": "must be a valid email address"}
	err := FromStatus(http.StatusUnprocessableEntity, "check your input", fields)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, fields, ce.Fields)
	assert.False(t, IsRetryable(err))
}

func TestInvalidInput_NoStatus(t *testing.T) {
	err := InvalidInput("enter your full name", map[string]string{"fullName": "is required"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, err.Status)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Server(502, "bad gateway")))
	assert.True(t, IsRetryable(Network("down", nil)))
	assert.False(t, IsRetryable(Authentication(401, "bad credentials")))
	assert.False(t, IsRetryable(InvalidInput("bad form", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Network error", Title(Network("down", nil)))
	assert.Equal(t, "Request timed out", Title(Timeout("slow", nil)))
	assert.Equal(t, "Authentication error", Title(Authentication(401, "nope")))
	assert.Equal(t, "Validation error", Title(InvalidInput("bad", nil)))
	assert.Equal(t, "Server error", Title(Server(500, "boom")))
	assert.Equal(t, "Error", Title(errors.New("plain")))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Network("down", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "AUTHENTICATION (401): bad credentials", Authentication(401, "bad credentials").Error())
	assert.Equal(t, "NETWORK: down", Network("down", nil).Error())
}
