// Package repotest holds behavioural tests shared by every implementation of
// the domain repositories. Each backend runs them from its own _test.go file.
package repotest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// Repos bundles one backend's repositories
type Repos struct {
	Users    domain.UserRepository
	Teams    domain.TeamRepository
	Invites  domain.InviteRepository
	Activity domain.ActivityRepository
}

// Run exercises all repositories. newRepos is called once per subtest; it
// may return shared storage as long as ids never collide.
func Run(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("teams", func(t *testing.T) { testTeams(t, newRepos(t)) })
	t.Run("invites", func(t *testing.T) { testInvites(t, newRepos(t)) })
	t.Run("invite status is compare-and-set", func(t *testing.T) { testInviteCAS(t, newRepos(t)) })
	t.Run("activity", func(t *testing.T) { testActivity(t, newRepos(t)) })
}

func newUser(t *testing.T, r Repos) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         "User",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, r.Users.Create(context.Background(), u))
	return u
}

func testUsers(t *testing.T, r Repos) {
	ctx := context.Background()
	u := newUser(t, r)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = r.Users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &domain.User{ID: uuid.NewString(), Name: "Other", Email: u.Email, PasswordHash: "x"}
	assert.ErrorIs(t, r.Users.Create(ctx, dup), domain.ErrDuplicate)

	_, err = r.Users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	other := newUser(t, r)
	byID, err := r.Users.GetByIDs(ctx, []string{u.ID, other.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, other.Email, byID[other.ID].Email)

	got.PasswordHash = "rotated"
	require.NoError(t, r.Users.Update(ctx, got))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.PasswordHash)
}

func testTeams(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := newUser(t, r)
	member := newUser(t, r)

	before, err := r.Teams.Count(ctx)
	require.NoError(t, err)

	team := domain.NewTeam(uuid.NewString(), "Platform", owner.ID)
	team.Tags = []string{"infra", "go"}
	require.NoError(t, r.Teams.Create(ctx, team))

	after, err := r.Teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	got, err := r.Teams.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.Equal(t, []domain.Member{{UserID: owner.ID, Role: domain.RoleOwner}}, got.Members)
	assert.Equal(t, []string{"infra", "go"}, got.Tags)
	assert.Equal(t, domain.VisibilityPrivate, got.Visibility)

	got.Members = append(got.Members, domain.Member{UserID: member.ID, Role: domain.RoleMember})
	got.Description = "runs the platform"
	require.NoError(t, r.Teams.Save(ctx, got))

	teams, err := r.Teams.ListByMember(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)
	assert.Equal(t, "runs the platform", teams[0].Description)

	teams, err = r.Teams.ListByMember(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, teams)

	require.NoError(t, r.Teams.Delete(ctx, team.ID))
	_, err = r.Teams.GetByID(ctx, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.Teams.Delete(ctx, team.ID), domain.ErrNotFound)
	assert.ErrorIs(t, r.Teams.Delete(ctx, "not-a-uuid"), domain.ErrNotFound)
	assert.ErrorIs(t, r.Teams.Save(ctx, got), domain.ErrNotFound)
}

func newInvite(teamID, email, by string) *domain.Invite {
	return &domain.Invite{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Email:     email,
		InvitedBy: by,
		Status:    domain.InvitePending,
	}
}

func testInvites(t *testing.T, r Repos) {
	ctx := context.Background()
	teamID := uuid.NewString()
	by := uuid.NewString()
	email := uuid.NewString() + "@example.com"

	first := newInvite(teamID, email, by)
	require.NoError(t, r.Invites.Create(ctx, first))
	assert.ErrorIs(t, r.Invites.Create(ctx, newInvite(teamID, email, by)), domain.ErrDuplicate)

	second := newInvite(teamID, uuid.NewString()+"@example.com", by)
	require.NoError(t, r.Invites.Create(ctx, second))

	pending, err := r.Invites.FindPending(ctx, teamID, email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, pending.ID)

	list, err := r.Invites.ListPendingByTeam(ctx, teamID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	list, err = r.Invites.ListPendingByEmail(ctx, email)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, r.Invites.UpdateStatus(ctx, first.ID, domain.InvitePending, domain.InviteDeclined))
	_, err = r.Invites.FindPending(ctx, teamID, email)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// a resolved invite frees the slot for a new one
	require.NoError(t, r.Invites.Create(ctx, newInvite(teamID, email, by)))

	got, err := r.Invites.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteDeclined, got.Status)
}

func testInviteCAS(t *testing.T, r Repos) {
	ctx := context.Background()
	inv := newInvite(uuid.NewString(), uuid.NewString()+"@example.com", uuid.NewString())
	require.NoError(t, r.Invites.Create(ctx, inv))

	before, err := r.Invites.CountPending(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Invites.UpdateStatus(ctx, inv.ID, domain.InvitePending, domain.InviteAccepted))
	err = r.Invites.UpdateStatus(ctx, inv.ID, domain.InvitePending, domain.InviteCancelled)
	assert.ErrorIs(t, err, domain.ErrStaleStatus)

	err = r.Invites.UpdateStatus(ctx, uuid.NewString(), domain.InvitePending, domain.InviteAccepted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = r.Invites.UpdateStatus(ctx, "not-a-uuid", domain.InvitePending, domain.InviteAccepted)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	after, err := r.Invites.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, before-1, after)
}

func testActivity(t *testing.T, r Repos) {
	ctx := context.Background()
	teamID := uuid.NewString()
	alice := uuid.NewString()
	bob := uuid.NewString()

	actions := []struct {
		user   string
		action domain.Action
	}{
		{alice, domain.ActionCreateTeam},
		{alice, domain.ActionAddMember},
		{bob, domain.ActionSendInvite},
		{alice, domain.ActionAddMember},
	}
	for i, a := range actions {
		entry := &domain.ActivityEntry{
			ID:      uuid.NewString(),
			TeamID:  teamID,
			UserID:  a.user,
			Action:  a.action,
			Details: map[string]any{"seq": float64(i)},
		}
		require.NoError(t, r.Activity.Append(ctx, entry))
		assert.False(t, entry.CreatedAt.IsZero())
	}
	// noise in another team
	require.NoError(t, r.Activity.Append(ctx, &domain.ActivityEntry{
		ID: uuid.NewString(), TeamID: uuid.NewString(), UserID: alice, Action: domain.ActionCreateTeam,
	}))

	entries, total, err := r.Activity.Query(ctx, domain.ActivityFilter{TeamID: teamID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, entries, 4)
	assert.Equal(t, float64(3), entries[0].Details["seq"], "newest first")
	assert.Equal(t, domain.ActionCreateTeam, entries[3].Action)

	entries, total, err = r.Activity.Query(ctx, domain.ActivityFilter{TeamID: teamID, Action: domain.ActionAddMember, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, entries, 2)

	entries, total, err = r.Activity.Query(ctx, domain.ActivityFilter{TeamID: teamID, UserID: bob, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionSendInvite, entries[0].Action)

	entries, total, err = r.Activity.Query(ctx, domain.ActivityFilter{TeamID: teamID, Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreateTeam, entries[0].Action)

	entries, total, err = r.Activity.Query(ctx, domain.ActivityFilter{TeamID: teamID, Page: 5, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, entries)
}
