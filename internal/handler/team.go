package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamhub/internal/service"
)

// TeamHandler handles team and membership endpoints
type TeamHandler struct {
	teams  *service.TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamHandler{teams: teams, logger: logger}
}

// CreateTeamRequest is the body of POST /api/teams/create
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// EmailRequest names the user a membership operation applies to
type EmailRequest struct {
	Email string `json:"email"`
}

// TeamResponse wraps a team view with an optional message
type TeamResponse struct {
	Message string            `json:"message,omitempty"`
	Team    *service.TeamView `json:"team"`
}

// SettingsResponse wraps team settings with an optional message
type SettingsResponse struct {
	Message  string            `json:"message,omitempty"`
	Settings *service.Settings `json:"settings"`
}

// Create handles POST /api/teams/create
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	team, err := h.teams.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, TeamResponse{Team: team})
}

// ListMine handles GET /api/teams/my-teams
func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	teams, err := h.teams.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if teams == nil {
		teams = []*service.TeamView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// Get handles GET /api/teams/{teamId}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	team, err := h.teams.Get(r.Context(), r.PathValue("teamId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TeamResponse{Team: team})
}

// Delete handles DELETE /api/teams/{teamId}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.teams.Delete(r.Context(), r.PathValue("teamId"), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Team deleted successfully"})
}

type memberOp func(ctx context.Context, teamID, callerID, email string) (*service.TeamView, error)

// memberAction builds a handler for an operation that takes {email} and
// returns the updated team
func (h *TeamHandler) memberAction(op memberOp, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req EmailRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}

		team, err := op(r.Context(), r.PathValue("teamId"), userID, req.Email)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, TeamResponse{Message: message, Team: team})
	}
}

// AddMember handles POST /api/teams/{teamId}/add-member
func (h *TeamHandler) AddMember() http.HandlerFunc {
	return h.memberAction(h.teams.AddMember, "Member added successfully")
}

// RemoveMember handles DELETE /api/teams/{teamId}/remove-member
func (h *TeamHandler) RemoveMember() http.HandlerFunc {
	return h.memberAction(h.teams.RemoveMember, "Member removed successfully")
}

// TransferOwnership handles PUT /api/teams/{teamId}/transfer-ownership
func (h *TeamHandler) TransferOwnership() http.HandlerFunc {
	return h.memberAction(h.teams.TransferOwnership, "Ownership transferred successfully")
}

// Promote handles PUT /api/teams/{teamId}/promote
func (h *TeamHandler) Promote() http.HandlerFunc {
	return h.memberAction(h.teams.Promote, "Member promoted to admin")
}

// Demote handles PUT /api/teams/{teamId}/demote
func (h *TeamHandler) Demote() http.HandlerFunc {
	return h.memberAction(h.teams.Demote, "Admin demoted to member")
}

// GetSettings handles GET /api/teams/{teamId}/settings
func (h *TeamHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	settings, err := h.teams.GetSettings(r.Context(), r.PathValue("teamId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// UpdateSettings handles PUT /api/teams/{teamId}/settings. Absent fields
// are left unchanged.
func (h *TeamHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req service.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	settings, err := h.teams.UpdateSettings(r.Context(), r.PathValue("teamId"), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Message: "Settings updated successfully", Settings: settings})
}
