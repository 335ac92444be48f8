package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("load team: %w", NotFound("Team not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestMessageOfHidesInternalCause(t *testing.T) {
	err := Internal("failed to save team", errors.New("pq: connection refused"))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "User already a member", MessageOf(Conflict("User already a member")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
