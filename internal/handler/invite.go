package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/service"
)

// InviteHandler handles invite endpoints
type InviteHandler struct {
	invites *service.InviteService
	logger  *slog.Logger
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(invites *service.InviteService, logger *slog.Logger) *InviteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteHandler{invites: invites, logger: logger}
}

// InviteResponse wraps an invite with a message and, on accept, the team
type InviteResponse struct {
	Message string            `json:"message"`
	Invite  *domain.Invite    `json:"invite"`
	Team    *service.TeamView `json:"team,omitempty"`
}

// Send handles POST /api/teams/{teamId}/invite
func (h *InviteHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	invite, err := h.invites.Send(r.Context(), r.PathValue("teamId"), userID, req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, InviteResponse{Message: "Invite sent successfully", Invite: invite})
}

// Accept handles POST /api/teams/invite/{inviteId}/accept
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invite, team, err := h.invites.Accept(r.Context(), r.PathValue("inviteId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{Message: "Invite accepted", Invite: invite, Team: team})
}

// Decline handles POST /api/teams/invite/{inviteId}/decline
func (h *InviteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invite, err := h.invites.Decline(r.Context(), r.PathValue("inviteId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{Message: "Invite declined", Invite: invite})
}

// Cancel handles POST /api/teams/invite/{inviteId}/cancel
func (h *InviteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invite, err := h.invites.Cancel(r.Context(), r.PathValue("inviteId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{Message: "Invite cancelled", Invite: invite})
}

// ListForTeam handles GET /api/teams/{teamId}/invites
func (h *InviteHandler) ListForTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invites, err := h.invites.ListForTeam(r.Context(), r.PathValue("teamId"), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeInvites(w, invites)
}

// ListMine handles GET /api/teams/my/invites
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invites, err := h.invites.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeInvites(w, invites)
}

func writeInvites(w http.ResponseWriter, invites []*domain.Invite) {
	if invites == nil {
		invites = []*domain.Invite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
}
