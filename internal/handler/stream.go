package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/teamhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamhub/internal/realtime"
	"github.com/aryan0dhankhar/teamhub/internal/security"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// ActivityStreamHandler pushes a team's new activity entries over a WebSocket
type ActivityStreamHandler struct {
	gate           *security.TeamGate
	hub            *realtime.Hub
	allowedOrigins []string
	logger         *slog.Logger
}

// NewActivityStreamHandler creates a new activity stream handler
func NewActivityStreamHandler(gate *security.TeamGate, hub *realtime.Hub, allowedOrigins []string, logger *slog.Logger) *ActivityStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityStreamHandler{
		gate:           gate,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *ActivityStreamHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no origin
			if origin == "" || slices.Contains(h.allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/teams/{teamId}/activity. Membership is checked
// before the upgrade so denied callers get a plain JSON error.
func (h *ActivityStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	teamID := r.PathValue("teamId")
	if _, _, err := h.gate.AuthorizePermission(r.Context(), teamID, userID, security.PermReadActivity); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe(teamID)
	defer h.hub.Unsubscribe(sub)
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	h.logger.Debug("activity stream opened",
		slog.String("team_id", teamID),
		slog.String("user_id", userID),
	)

	// The read loop only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case entry, ok := <-sub.C:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(entry); err != nil {
				h.logger.Debug("activity stream write failed",
					slog.String("team_id", teamID),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			h.logger.Debug("activity stream closed", slog.String("team_id", teamID))
			return
		case <-r.Context().Done():
			return
		}
	}
}
