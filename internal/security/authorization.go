package security

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// Permission represents a team operation that needs a role check
type Permission string

const (
	PermManageMembers     Permission = "manage_members"
	PermManageInvites     Permission = "manage_invites"
	PermUpdateSettings    Permission = "update_settings"
	PermReadTeam          Permission = "read_team"
	PermReadActivity      Permission = "read_activity"
	PermDeleteTeam        Permission = "delete_team"
	PermTransferOwnership Permission = "transfer_ownership"
	PermManageRoles       Permission = "manage_roles"
)

// TeamPermissions maps each permission to the roles allowed to use it
var TeamPermissions = map[Permission][]domain.Role{
	PermManageMembers:     {domain.RoleOwner, domain.RoleAdmin},
	PermManageInvites:     {domain.RoleOwner, domain.RoleAdmin},
	PermUpdateSettings:    {domain.RoleOwner, domain.RoleAdmin},
	PermReadTeam:          {domain.RoleOwner, domain.RoleAdmin, domain.RoleMember},
	PermReadActivity:      {domain.RoleOwner, domain.RoleAdmin, domain.RoleMember},
	PermDeleteTeam:        {domain.RoleOwner},
	PermTransferOwnership: {domain.RoleOwner},
	PermManageRoles:       {domain.RoleOwner},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role domain.Role, permission Permission) bool {
	return slices.Contains(TeamPermissions[permission], role)
}

// Messages returned by the gate
const (
	MsgTeamNotFound     = "Team not found"
	MsgNotMember        = "You are not a member of this team"
	MsgPermissionDenied = "You do not have permission for this action"
)

// TeamGate resolves a caller's membership and role in a team and permits or
// denies the call. It never writes.
type TeamGate struct {
	teams  domain.TeamRepository
	logger *slog.Logger
	tracer trace.Tracer
}

// NewTeamGate creates a new authorization gate
func NewTeamGate(teams domain.TeamRepository, logger *slog.Logger) *TeamGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamGate{
		teams:  teams,
		logger: logger,
		tracer: otel.Tracer("teamhub/security"),
	}
}

// Authorize loads the team and checks that userID is a member whose role is
// one of allowed. An empty allowed set admits any member. The loaded team is
// returned so callers do not read it twice.
func (g *TeamGate) Authorize(ctx context.Context, teamID, userID string, allowed ...domain.Role) (*domain.Team, *domain.Member, error) {
	ctx, span := g.tracer.Start(ctx, "TeamGate.Authorize", trace.WithAttributes(
		attribute.String("team.id", teamID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	team, err := g.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			span.SetStatus(codes.Error, "team not found")
			return nil, nil, apperr.NotFound(MsgTeamNotFound)
		}
		span.RecordError(err)
		return nil, nil, apperr.Internal("failed to load team", err)
	}

	member := team.Member(userID)
	if member == nil {
		g.logger.Warn("team access denied",
			slog.String("team_id", teamID),
			slog.String("user_id", userID),
			slog.String("reason", "not a member"),
		)
		span.SetStatus(codes.Error, "not a member")
		return nil, nil, apperr.Forbidden(MsgNotMember)
	}

	if len(allowed) > 0 && !slices.Contains(allowed, member.Role) {
		g.logger.Warn("team access denied",
			slog.String("team_id", teamID),
			slog.String("user_id", userID),
			slog.String("role", string(member.Role)),
		)
		span.SetStatus(codes.Error, "role not allowed")
		return nil, nil, apperr.Forbidden(MsgPermissionDenied)
	}

	span.SetAttributes(attribute.String("member.role", string(member.Role)))
	return team, member, nil
}

// AuthorizePermission is Authorize with the allowed roles taken from
// TeamPermissions.
func (g *TeamGate) AuthorizePermission(ctx context.Context, teamID, userID string, permission Permission) (*domain.Team, *domain.Member, error) {
	roles, ok := TeamPermissions[permission]
	if !ok {
		return nil, nil, apperr.Internal("unknown permission", errors.New(string(permission)))
	}
	return g.Authorize(ctx, teamID, userID, roles...)
}
