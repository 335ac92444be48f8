package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
	"github.com/aryan0dhankhar/teamhub/internal/security/auth"
	"github.com/aryan0dhankhar/teamhub/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// Middleware decorates a handler
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one is the outermost
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// publicPaths never require a token
var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/api/auth/register",
	"/api/auth/login",
}

func isPublic(path string) bool {
	return slices.Contains(publicPaths, path)
}

func isLogin(path string) bool {
	return path == "/api/auth/login" || path == "/api/auth/register"
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// RequestID tags each request with an id (taken from X-Request-ID when the
// client sends one) and logs its completion.
func RequestID(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(audit.WithRequestID(r.Context(), id)))

			log.Debug("request completed",
				slog.String("request_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// CORS answers preflight requests and sets CORS headers for allowed origins
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JWTMiddleware authenticates every non-public request. WebSocket upgrades
// may pass the token as the token query parameter since browsers cannot set
// headers on them.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			var tokenString string
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				t, err := auth.ExtractToken(authHeader)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "Invalid authorization header")
					return
				}
				tokenString = t
			} else if strings.HasPrefix(r.URL.Path, "/ws/") {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits authenticated callers per user id and the
// login/register endpoints per client IP with the tighter loginPerMinute.
func RateLimitMiddleware(limiter *ratelimit.Limiter, loginPerMinute int, log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLogin(r.URL.Path) {
				ip := clientIP(r)
				if !limiter.AllowStrict(ip, loginPerMinute, time.Minute) {
					log.Warn("login rate limit exceeded", slog.String("client_ip", ip))
					writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if claims := GetClaimsFromContext(r.Context()); claims != nil && !limiter.Allow(claims.UserID) {
				log.Warn("rate limit exceeded", slog.String("user_id", claims.UserID))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware writes a security audit line for every 401 or 403 answer
func AuditMiddleware(recorder *audit.Recorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.status == http.StatusUnauthorized || sw.status == http.StatusForbidden {
				userID := ""
				if claims := GetClaimsFromContext(r.Context()); claims != nil {
					userID = claims.UserID
				}
				recorder.LogDenied(r.Context(), userID, r.Method, r.URL.Path, sw.status)
			}
		})
	}
}

// GetClaimsFromContext returns the authenticated caller's claims, or nil
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// UserIDFromContext returns the authenticated caller's id, or ""
func UserIDFromContext(ctx context.Context) string {
	if c := GetClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
