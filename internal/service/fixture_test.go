package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/featureflags"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
	"github.com/aryan0dhankhar/teamhub/internal/security"
	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
)

type fixture struct {
	users    *memory.UserRepository
	teams    *memory.TeamRepository
	invites  *memory.InviteRepository
	activity *memory.ActivityRepository

	teamSvc     *TeamService
	inviteSvc   *InviteService
	activitySvc *ActivityService
}

func newFixture(t *testing.T, flags ...string) *fixture {
	t.Helper()
	log := logger.Discard()
	f := &fixture{
		users:    memory.NewUserRepository(),
		teams:    memory.NewTeamRepository(),
		invites:  memory.NewInviteRepository(),
		activity: memory.NewActivityRepository(),
	}
	gate := security.NewTeamGate(f.teams, log)
	rec := audit.NewRecorder(f.activity, nil, log)
	f.teamSvc = NewTeamService(f.teams, f.users, gate, rec, log)
	f.inviteSvc = NewInviteService(f.invites, f.teams, f.users, gate, rec, featureflags.Static(flags...), log)
	f.activitySvc = NewActivityService(f.activity, f.users, gate, log)
	return f
}

// user registers an account with the given email and returns it
func (f *fixture) user(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// stored reloads a team straight from the store
func (f *fixture) stored(t *testing.T, teamID string) *domain.Team {
	t.Helper()
	team, err := f.teams.GetByID(context.Background(), teamID)
	require.NoError(t, err)
	return team
}

// actions lists the recorded actions of a team, oldest first
func (f *fixture) actions(t *testing.T, teamID string) []domain.Action {
	t.Helper()
	entries, _, err := f.activity.Query(context.Background(), domain.ActivityFilter{TeamID: teamID, Page: 1, Limit: 1000})
	require.NoError(t, err)
	out := make([]domain.Action, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e.Action
	}
	return out
}
