package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/featureflags"
	"github.com/aryan0dhankhar/teamhub/internal/security"
)

const (
	MsgInviteNotFound  = "Invite not found"
	MsgInviteProcessed = "Invite has already been processed"
	MsgInvitePending   = "An invite is already pending for this email"
)

// InviteService implements the invite lifecycle:
// pending -> accepted | declined | cancelled. Status changes are
// compare-and-set in the store, so two racing resolutions cannot both win.
type InviteService struct {
	invites  domain.InviteRepository
	teams    domain.TeamRepository
	users    domain.UserRepository
	gate     *security.TeamGate
	recorder ActivityRecorder
	flags    featureflags.Lookup
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewInviteService creates a new invite service. A nil flags lookup reads
// flags from the environment.
func NewInviteService(
	invites domain.InviteRepository,
	teams domain.TeamRepository,
	users domain.UserRepository,
	gate *security.TeamGate,
	recorder ActivityRecorder,
	flags featureflags.Lookup,
	logger *slog.Logger,
) *InviteService {
	if logger == nil {
		logger = slog.Default()
	}
	if flags == nil {
		flags = featureflags.Enabled
	}
	return &InviteService{
		invites:  invites,
		teams:    teams,
		users:    users,
		gate:     gate,
		recorder: recorder,
		flags:    flags,
		logger:   logger,
		tracer:   otel.Tracer("teamhub/service"),
	}
}

// Send creates a pending invite for email. The address does not need to
// belong to a registered user yet.
func (s *InviteService) Send(ctx context.Context, teamID, callerID, email string) (invite *domain.Invite, err error) {
	ctx, end := begin(ctx, s.tracer, "send_invite")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermManageInvites)
	if err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("Invalid email address")
	}

	alreadyMember, err := s.isMemberByEmail(ctx, team, email)
	if err != nil {
		return nil, err
	}
	if alreadyMember {
		if s.flags(featureflags.InviteRejectMembers) {
			return nil, apperr.Conflict("User already a member")
		}
		s.logger.Info("inviting an existing member",
			slog.String("team_id", team.ID),
		)
	}

	if _, err := s.invites.FindPending(ctx, team.ID, email); err == nil {
		return nil, apperr.Conflict(MsgInvitePending)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, apperr.Internal("failed to check pending invites", err)
	}

	invite = &domain.Invite{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		Email:     email,
		InvitedBy: callerID,
		Status:    domain.InvitePending,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict(MsgInvitePending)
		}
		return nil, apperr.Internal("failed to create invite", err)
	}

	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionSendInvite,
		map[string]any{"email": email, "invite_id": invite.ID})
	return invite, nil
}

func (s *InviteService) isMemberByEmail(ctx context.Context, team *domain.Team, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Internal("failed to look up user", err)
	}
	return team.IsMember(user.ID), nil
}

// Accept resolves the caller's invite and adds them to the team. A caller who
// is already a member keeps their current entry. When the team cannot be saved
// the invite goes back to pending.
func (s *InviteService) Accept(ctx context.Context, inviteID, callerID string) (invite *domain.Invite, view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "accept_invite")
	defer func() { end(err) }()

	invite, caller, err := s.loadForInvitee(ctx, inviteID, callerID)
	if err != nil {
		return nil, nil, err
	}
	team, err := s.teams.GetByID(ctx, invite.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, apperr.NotFound(security.MsgTeamNotFound)
		}
		return nil, nil, apperr.Internal("failed to load team", err)
	}

	if err := s.transition(ctx, invite, domain.InviteAccepted); err != nil {
		return nil, nil, err
	}

	if !team.IsMember(caller.ID) {
		team.Members = append(team.Members, domain.Member{UserID: caller.ID, Role: domain.RoleMember})
		if err := saveTeam(ctx, s.teams, s.logger, team); err != nil {
			s.reopen(ctx, invite)
			return nil, nil, err
		}
	}

	recordActivity(ctx, s.recorder, s.logger, team.ID, caller.ID, domain.ActionAcceptInvite,
		map[string]any{"invite_id": invite.ID, "email": invite.Email})
	view, err = resolveTeam(ctx, s.users, team, caller.ID)
	if err != nil {
		return nil, nil, err
	}
	return invite, view, nil
}

// Decline resolves the caller's invite without joining
func (s *InviteService) Decline(ctx context.Context, inviteID, callerID string) (invite *domain.Invite, err error) {
	ctx, end := begin(ctx, s.tracer, "decline_invite")
	defer func() { end(err) }()

	invite, caller, err := s.loadForInvitee(ctx, inviteID, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, invite, domain.InviteDeclined); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.recorder, s.logger, invite.TeamID, caller.ID, domain.ActionDeclineInvite,
		map[string]any{"invite_id": invite.ID, "email": invite.Email})
	return invite, nil
}

// Cancel revokes a pending invite; owner or admin of its team only
func (s *InviteService) Cancel(ctx context.Context, inviteID, callerID string) (invite *domain.Invite, err error) {
	ctx, end := begin(ctx, s.tracer, "cancel_invite")
	defer func() { end(err) }()

	invite, err = s.load(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.gate.AuthorizePermission(ctx, invite.TeamID, callerID, security.PermManageInvites); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, invite, domain.InviteCancelled); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.recorder, s.logger, invite.TeamID, callerID, domain.ActionCancelInvite,
		map[string]any{"invite_id": invite.ID, "email": invite.Email})
	return invite, nil
}

// ListForTeam returns a team's pending invites, newest first
func (s *InviteService) ListForTeam(ctx context.Context, teamID, callerID string) (invites []*domain.Invite, err error) {
	ctx, end := begin(ctx, s.tracer, "list_team_invites")
	defer func() { end(err) }()

	if _, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermManageInvites); err != nil {
		return nil, err
	}
	invites, err = s.invites.ListPendingByTeam(ctx, teamID)
	if err != nil {
		return nil, apperr.Internal("failed to list invites", err)
	}
	return invites, nil
}

// ListMine returns the pending invites addressed to the caller, newest first
func (s *InviteService) ListMine(ctx context.Context, callerID string) (invites []*domain.Invite, err error) {
	ctx, end := begin(ctx, s.tracer, "list_my_invites")
	defer func() { end(err) }()

	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	invites, err = s.invites.ListPendingByEmail(ctx, caller.Email)
	if err != nil {
		return nil, apperr.Internal("failed to list invites", err)
	}
	return invites, nil
}

func (s *InviteService) load(ctx context.Context, inviteID string) (*domain.Invite, error) {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound(MsgInviteNotFound)
		}
		return nil, apperr.Internal("failed to load invite", err)
	}
	return invite, nil
}

func (s *InviteService) caller(ctx context.Context, callerID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

// loadForInvitee loads the invite and checks it is addressed to the caller
func (s *InviteService) loadForInvitee(ctx context.Context, inviteID, callerID string) (*domain.Invite, *domain.User, error) {
	invite, err := s.load(ctx, inviteID)
	if err != nil {
		return nil, nil, err
	}
	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, nil, err
	}
	if err := security.CheckInvitee(s.logger, invite, caller); err != nil {
		return nil, nil, err
	}
	return invite, caller, nil
}

// transition moves a pending invite to a terminal status
// reopen moves an accepted invite back to pending after the join failed, so
// the invitee can retry
func (s *InviteService) reopen(ctx context.Context, invite *domain.Invite) {
	if err := s.invites.UpdateStatus(ctx, invite.ID, domain.InviteAccepted, domain.InvitePending); err != nil {
		s.logger.Error("failed to reopen invite after join failed",
			slog.String("invite_id", invite.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	invite.Status = domain.InvitePending
}

func (s *InviteService) transition(ctx context.Context, invite *domain.Invite, to domain.InviteStatus) error {
	if invite.Status != domain.InvitePending {
		return apperr.Conflict(MsgInviteProcessed)
	}
	if err := s.invites.UpdateStatus(ctx, invite.ID, domain.InvitePending, to); err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleStatus):
			return apperr.Conflict(MsgInviteProcessed)
		case errors.Is(err, domain.ErrNotFound):
			return apperr.NotFound(MsgInviteNotFound)
		default:
			return apperr.Internal("failed to update invite", err)
		}
	}
	invite.Status = to
	return nil
}
