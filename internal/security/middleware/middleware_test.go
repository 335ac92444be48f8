package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
	"github.com/aryan0dhankhar/teamhub/internal/security/auth"
	"github.com/aryan0dhankhar/teamhub/internal/security/ratelimit"
)

var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(UserIDFromContext(r.Context())))
})

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "teamhub", time.Hour)
	token, err := tm.GenerateToken("u1", "a@x.com")
	require.NoError(t, err)
	h := JWTMiddleware(tm, logger.Discard())(echoUser)

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "public path", target: "/healthz", wantStatus: http.StatusOK},
		{name: "missing token", target: "/api/teams/my-teams", wantStatus: http.StatusUnauthorized},
		{name: "bad header", target: "/api/teams/my-teams", header: "Token x", wantStatus: http.StatusUnauthorized},
		{name: "bad token", target: "/api/teams/my-teams", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "valid header", target: "/api/teams/my-teams", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "query token on websocket", target: "/ws/teams/t1/activity?token=" + token, wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "query token ignored on api", target: "/api/teams/my-teams?token=" + token, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if rec.Code == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"message"`)
			}
		})
	}
}

func TestRateLimitMiddlewareLogin(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, 2, logger.Discard())(echoUser)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestAuditMiddlewareLogsDenials(t *testing.T) {
	var buf bytes.Buffer
	rec := audit.NewRecorder(memory.NewActivityRepository(), nil, logger.New(&buf, "info"))
	forbidden := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	Chain(forbidden, AuditMiddleware(rec)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/teams/t1", nil))
	assert.Contains(t, buf.String(), `"action":"access_denied"`)
	assert.Contains(t, buf.String(), `"status":403`)
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://app.test"})(echoUser)

	req := httptest.NewRequest(http.MethodOptions, "/api/teams/create", nil)
	req.Header.Set("Origin", "http://app.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidation(t *testing.T) {
	log := logger.Discard()
	h := Chain(echoUser, SanitizeInputs(log), ValidateJSONContentType(log))

	req := httptest.NewRequest(http.MethodPost, "/api/teams/create", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/t1/logs?action=%3Cscript%3E", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/invite/i1/accept", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
