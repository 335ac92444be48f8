package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.NotFound("Team not found"), http.StatusNotFound, `{"message":"Team not found"}`},
		{apperr.Conflict("User already a member"), http.StatusBadRequest, `{"message":"User already a member"}`},
		{apperr.Forbidden("nope"), http.StatusForbidden, `{"message":"nope"}`},
		{apperr.Internal("failed to save team", errors.New("pq: connection reset")), http.StatusInternalServerError, `{"message":"internal server error"}`},
		{errors.New("raw"), http.StatusInternalServerError, `{"message":"internal server error"}`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), logger.Discard(), tt.err)
		assert.Equal(t, tt.status, rec.Code)
		assert.JSONEq(t, tt.body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestDecodeJSON(t *testing.T) {
	var req EmailRequest
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":"a@x.com"}`))
	require.NoError(t, decodeJSON(r, &req))
	assert.Equal(t, "a@x.com", req.Email)

	r = httptest.NewRequest(http.MethodPost, "/x", nil)
	assert.NoError(t, decodeJSON(r, &req))

	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decodeJSON(r, &req)))
}

func TestCallerIDRequiresClaims(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := callerID(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
