package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("failed to reveal: %w", Unauthorized("requester is not a room admin"))

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeUnauthorized, CodeOf(err))
	assert.Equal(t, "requester is not a room admin", MessageOf(err))
}

func TestCodeOfForeignError(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, CodeUnknown, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(CodeConflict, "active session exists", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "active session exists: duplicate key", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeInvalidState, http.StatusConflict},
		{CodeExpired, http.StatusGone},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
