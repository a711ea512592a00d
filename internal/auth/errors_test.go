// ABOUTME: Tests for the error taxonomy
// ABOUTME: Covers kind matching, status mapping and wrapped errors

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := Unauthorized("bad credentials")

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrBadRequest))
	assert.True(t, errors.Is(err, Unauthorized("bad credentials")))
	assert.False(t, errors.Is(err, Unauthorized("identity not found")))
}

func TestError_Wrapped(t *testing.T) {
	err := fmt.Errorf("sign-in: %w", Conflict("email already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Kind: KindUnauthorized, Reason: "token expired", Err: ErrExpiredToken}
	assert.True(t, errors.Is(err, ErrExpiredToken))
	assert.Equal(t, "unauthorized: token expired", err.Error())
}

func TestKind_Status(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{BadRequest("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err).Status())
		})
	}
}
