// Package router assembles the HTTP surface: routes, middleware chain,
// metrics and tracing.
package router

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/teamhub/internal/handler"
	"github.com/aryan0dhankhar/teamhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamhub/internal/realtime"
	"github.com/aryan0dhankhar/teamhub/internal/security"
	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
	"github.com/aryan0dhankhar/teamhub/internal/security/auth"
	"github.com/aryan0dhankhar/teamhub/internal/security/middleware"
	"github.com/aryan0dhankhar/teamhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/teamhub/internal/service"
)

// Deps holds everything the routes are wired to
type Deps struct {
	Auth     *service.AuthService
	Teams    *service.TeamService
	Invites  *service.InviteService
	Activity *service.ActivityService

	Gate     *security.TeamGate
	Hub      *realtime.Hub
	Tokens   *auth.TokenManager
	Limiter  *ratelimit.Limiter
	Recorder *audit.Recorder

	// Checks are probed by /readyz
	Checks map[string]handler.Pinger

	AllowedOrigins     []string
	LoginRatePerMinute int
	Logger             *slog.Logger
}

// New builds the root handler
func New(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	authHandler := handler.NewAuthHandler(d.Auth, log)
	teamHandler := handler.NewTeamHandler(d.Teams, log)
	inviteHandler := handler.NewInviteHandler(d.Invites, log)
	activityHandler := handler.NewActivityHandler(d.Activity, log)
	streamHandler := handler.NewActivityStreamHandler(d.Gate, d.Hub, d.AllowedOrigins, log)
	healthHandler := handler.NewHealthHandler(d.Checks, log)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.InstrumentRoute(pattern, h))
	}

	handle("GET /healthz", http.HandlerFunc(healthHandler.Health))
	handle("GET /readyz", http.HandlerFunc(healthHandler.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	handle("POST /api/auth/register", http.HandlerFunc(authHandler.Register))
	handle("POST /api/auth/login", http.HandlerFunc(authHandler.Login))
	handle("POST /api/auth/change-password", http.HandlerFunc(authHandler.ChangePassword))
	handle("GET /api/auth/me", http.HandlerFunc(authHandler.Me))

	handle("POST /api/teams/create", http.HandlerFunc(teamHandler.Create))
	handle("GET /api/teams/my-teams", http.HandlerFunc(teamHandler.ListMine))
	handle("GET /api/teams/{teamId}", http.HandlerFunc(teamHandler.Get))
	handle("DELETE /api/teams/{teamId}", http.HandlerFunc(teamHandler.Delete))
	handle("POST /api/teams/{teamId}/add-member", teamHandler.AddMember())
	handle("DELETE /api/teams/{teamId}/remove-member", teamHandler.RemoveMember())
	handle("PUT /api/teams/{teamId}/transfer-ownership", teamHandler.TransferOwnership())
	handle("PUT /api/teams/{teamId}/promote", teamHandler.Promote())
	handle("PUT /api/teams/{teamId}/demote", teamHandler.Demote())
	handle("GET /api/teams/{teamId}/settings", http.HandlerFunc(teamHandler.GetSettings))
	handle("PUT /api/teams/{teamId}/settings", http.HandlerFunc(teamHandler.UpdateSettings))

	handle("POST /api/teams/{teamId}/invite", http.HandlerFunc(inviteHandler.Send))
	handle("GET /api/teams/{teamId}/invites", http.HandlerFunc(inviteHandler.ListForTeam))
	handle("GET /api/teams/my/invites", http.HandlerFunc(inviteHandler.ListMine))
	handle("POST /api/teams/invite/{inviteId}/accept", http.HandlerFunc(inviteHandler.Accept))
	handle("POST /api/teams/invite/{inviteId}/decline", http.HandlerFunc(inviteHandler.Decline))
	handle("POST /api/teams/invite/{inviteId}/cancel", http.HandlerFunc(inviteHandler.Cancel))

	handle("GET /api/teams/{teamId}/logs", http.HandlerFunc(activityHandler.Logs))
	handle("GET /ws/teams/{teamId}/activity", streamHandler)

	// request ID -> CORS -> JWT -> audit -> rate limit -> input checks.
	// Audit sits inside JWT so denied calls carry the caller's id.
	root := middleware.Chain(mux,
		middleware.RequestID(log),
		middleware.CORS(d.AllowedOrigins),
		middleware.JWTMiddleware(d.Tokens, log),
		middleware.AuditMiddleware(d.Recorder),
		middleware.RateLimitMiddleware(d.Limiter, d.LoginRatePerMinute, log),
		middleware.SanitizeInputs(log),
		middleware.ValidateJSONContentType(log),
	)
	return otelhttp.NewHandler(root, "teamhub",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/readyz" && r.URL.Path != "/metrics"
		}),
	)
}
