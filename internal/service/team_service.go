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
	"github.com/aryan0dhankhar/teamhub/internal/security"
)

// Messages shared by the team and invite operations
const (
	MsgUserNotFound = "User not found"
	MsgNotAMember   = "User is not a member of this team"
)

// TeamService implements the team operations. Every call passes the role
// gate first and records an activity entry after a successful mutation.
type TeamService struct {
	teams    domain.TeamRepository
	users    domain.UserRepository
	gate     *security.TeamGate
	recorder ActivityRecorder
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewTeamService creates a new team service
func NewTeamService(
	teams domain.TeamRepository,
	users domain.UserRepository,
	gate *security.TeamGate,
	recorder ActivityRecorder,
	logger *slog.Logger,
) *TeamService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamService{
		teams:    teams,
		users:    users,
		gate:     gate,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("teamhub/service"),
	}
}

// SettingsUpdate carries a partial settings change. Nil fields are left as
// they are.
type SettingsUpdate struct {
	Description *string   `json:"description"`
	Avatar      *string   `json:"avatar"`
	Visibility  *string   `json:"visibility"`
	Tags        *[]string `json:"tags"`
}

// Create makes a new team owned by callerID
func (s *TeamService) Create(ctx context.Context, callerID, name string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "create_team")
	defer func() { end(err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Team name is required")
	}

	team := domain.NewTeam(uuid.NewString(), name, callerID)
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperr.Internal("failed to create team", err)
	}

	s.logger.Info("team created", slog.String("team_id", team.ID), slog.String("owner_id", callerID))
	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionCreateTeam, map[string]any{"name": name})
	return resolveTeam(ctx, s.users, team, callerID)
}

// Get returns one team to any of its members
func (s *TeamService) Get(ctx context.Context, teamID, callerID string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "get_team")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermReadTeam)
	if err != nil {
		return nil, err
	}
	return resolveTeam(ctx, s.users, team, callerID)
}

// ListMine returns every team the caller belongs to
func (s *TeamService) ListMine(ctx context.Context, callerID string) (views []*TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "list_my_teams")
	defer func() { end(err) }()

	teams, err := s.teams.ListByMember(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("failed to list teams", err)
	}
	return resolveTeams(ctx, s.users, teams, callerID)
}

// AddMember adds the user registered under email as a plain member
func (s *TeamService) AddMember(ctx context.Context, teamID, callerID, email string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "add_member")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermManageMembers)
	if err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if team.IsMember(user.ID) {
		return nil, apperr.Conflict("User already a member")
	}

	team.Members = append(team.Members, domain.Member{UserID: user.ID, Role: domain.RoleMember})
	if err := s.save(ctx, team); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionAddMember,
		map[string]any{"email": user.Email, "user_id": user.ID})
	return resolveTeam(ctx, s.users, team, callerID)
}

// RemoveMember drops the user registered under email. The owner can never be
// removed, not even by themselves.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, callerID, email string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "remove_member")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermManageMembers)
	if err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.ID == team.OwnerID {
		return nil, apperr.Conflict("Cannot remove the owner")
	}
	if !team.RemoveMember(user.ID) {
		return nil, apperr.Conflict(MsgNotAMember)
	}
	if err := s.save(ctx, team); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionRemoveMember,
		map[string]any{"email": user.Email, "user_id": user.ID})
	return resolveTeam(ctx, s.users, team, callerID)
}

// Delete removes the team. The activity entry is written after the delete.
func (s *TeamService) Delete(ctx context.Context, teamID, callerID string) (err error) {
	ctx, end := begin(ctx, s.tracer, "delete_team")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermDeleteTeam)
	if err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, team.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound(security.MsgTeamNotFound)
		}
		return apperr.Internal("failed to delete team", err)
	}

	s.logger.Info("team deleted", slog.String("team_id", team.ID), slog.String("user_id", callerID))
	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionDeleteTeam, map[string]any{"name": team.Name})
	return nil
}

// TransferOwnership hands the team to an existing member. Both role changes
// and the owner reference are applied in memory and written with one save.
func (s *TeamService) TransferOwnership(ctx context.Context, teamID, callerID, email string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "transfer_ownership")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermTransferOwnership)
	if err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.ID == team.OwnerID {
		return nil, apperr.Conflict("User is already the owner")
	}
	if !team.IsMember(user.ID) {
		return nil, apperr.Conflict("User must be a member to become owner")
	}

	previous := team.OwnerID
	if err := team.TransferOwnership(user.ID); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	if err := s.save(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info("team ownership transferred",
		slog.String("team_id", team.ID),
		slog.String("from", previous),
		slog.String("to", user.ID),
	)
	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionTransferOwnership,
		map[string]any{"from": previous, "to": user.ID})
	return resolveTeam(ctx, s.users, team, callerID)
}

// Promote makes a plain member an admin
func (s *TeamService) Promote(ctx context.Context, teamID, callerID, email string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "promote_admin")
	defer func() { end(err) }()

	return s.changeRole(ctx, teamID, callerID, email, domain.RoleMember, domain.RoleAdmin)
}

// Demote makes an admin a plain member
func (s *TeamService) Demote(ctx context.Context, teamID, callerID, email string) (view *TeamView, err error) {
	ctx, end := begin(ctx, s.tracer, "demote_admin")
	defer func() { end(err) }()

	return s.changeRole(ctx, teamID, callerID, email, domain.RoleAdmin, domain.RoleMember)
}

func (s *TeamService) changeRole(ctx context.Context, teamID, callerID, email string, from, to domain.Role) (*TeamView, error) {
	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermManageRoles)
	if err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	member := team.Member(user.ID)
	switch {
	case member == nil:
		return nil, apperr.Conflict(MsgNotAMember)
	case member.Role == domain.RoleOwner && to == domain.RoleAdmin:
		return nil, apperr.Conflict("Owner cannot be promoted")
	case member.Role == domain.RoleOwner:
		return nil, apperr.Conflict("Owner cannot be demoted")
	case member.Role != from && to == domain.RoleAdmin:
		return nil, apperr.Conflict("User is already an admin")
	case member.Role != from:
		return nil, apperr.Conflict("User is already a member")
	}

	member.Role = to
	if err := s.save(ctx, team); err != nil {
		return nil, err
	}

	action := domain.ActionPromoteAdmin
	if to == domain.RoleMember {
		action = domain.ActionDemoteAdmin
	}
	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, action,
		map[string]any{"email": user.Email, "user_id": user.ID})
	return resolveTeam(ctx, s.users, team, callerID)
}

// GetSettings returns the team's editable metadata to any member
func (s *TeamService) GetSettings(ctx context.Context, teamID, callerID string) (settings *Settings, err error) {
	ctx, end := begin(ctx, s.tracer, "get_settings")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermReadTeam)
	if err != nil {
		return nil, err
	}
	return settingsOf(team), nil
}

// UpdateSettings applies a partial settings change
func (s *TeamService) UpdateSettings(ctx context.Context, teamID, callerID string, update SettingsUpdate) (settings *Settings, err error) {
	ctx, end := begin(ctx, s.tracer, "update_settings")
	defer func() { end(err) }()

	team, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermUpdateSettings)
	if err != nil {
		return nil, err
	}

	var changed []string
	if update.Description != nil {
		team.Description = strings.TrimSpace(*update.Description)
		changed = append(changed, "description")
	}
	if update.Avatar != nil {
		team.Avatar = strings.TrimSpace(*update.Avatar)
		changed = append(changed, "avatar")
	}
	if update.Visibility != nil {
		v := domain.Visibility(strings.ToLower(strings.TrimSpace(*update.Visibility)))
		if !v.Valid() {
			return nil, apperr.Validation("Visibility must be private or public")
		}
		team.Visibility = v
		changed = append(changed, "visibility")
	}
	if update.Tags != nil {
		team.Tags = normalizeTags(*update.Tags)
		changed = append(changed, "tags")
	}
	if len(changed) == 0 {
		return nil, apperr.Validation("No settings supplied")
	}

	if err := s.save(ctx, team); err != nil {
		return nil, err
	}
	recordActivity(ctx, s.recorder, s.logger, team.ID, callerID, domain.ActionUpdateSettings,
		map[string]any{"fields": changed})
	return settingsOf(team), nil
}

// normalizeTags trims tags and drops blanks and duplicates, keeping order
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (s *TeamService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	return lookupUserByEmail(ctx, s.users, email)
}

func lookupUserByEmail(ctx context.Context, users domain.UserRepository, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, apperr.Internal("failed to look up user", err)
	}
	return user, nil
}

// save refuses to persist a team that breaks the ownership invariant
func (s *TeamService) save(ctx context.Context, team *domain.Team) error {
	return saveTeam(ctx, s.teams, s.logger, team)
}

func saveTeam(ctx context.Context, teams domain.TeamRepository, logger *slog.Logger, team *domain.Team) error {
	if err := team.CheckOwnership(); err != nil {
		logger.Error("refusing to save inconsistent team",
			slog.String("team_id", team.ID),
			slog.String("error", err.Error()),
		)
		return apperr.Internal("team ownership invariant violated", err)
	}
	if err := teams.Save(ctx, team); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound(security.MsgTeamNotFound)
		}
		return apperr.Internal("failed to save team", err)
	}
	return nil
}
