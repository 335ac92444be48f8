package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamhub/internal/service"
)

// ActivityHandler serves a team's activity log
type ActivityHandler struct {
	activity *service.ActivityService
	logger   *slog.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{activity: activity, logger: logger}
}

// Logs handles GET /api/teams/{teamId}/logs. Supported query parameters:
// action, user, startDate, endDate, page and limit.
func (h *ActivityHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.activity.Query(r.Context(), r.PathValue("teamId"), userID, service.ActivityQuery{
		Action:    q.Get("action"),
		UserID:    q.Get("user"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if page.Logs == nil {
		page.Logs = []service.LogView{}
	}
	writeJSON(w, http.StatusOK, page)
}
