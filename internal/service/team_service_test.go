package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

func requireKind(t *testing.T, want apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.KindOf(err), "error: %v", err)
}

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")

	_, err := f.teamSvc.Create(ctx, alice.ID, "   ")
	requireKind(t, apperr.KindValidation, err)

	view, err := f.teamSvc.Create(ctx, alice.ID, " Eng ")
	require.NoError(t, err)
	assert.Equal(t, "Eng", view.Name)
	assert.Equal(t, "a@x.com", view.Owner.Email)
	require.Len(t, view.Members, 1)
	assert.Equal(t, domain.RoleOwner, view.Members[0].Role)
	assert.Equal(t, domain.RoleOwner, view.MyRole)
	assert.Equal(t, domain.VisibilityPrivate, view.Visibility)

	assert.Equal(t, []domain.Action{domain.ActionCreateTeam}, f.actions(t, view.ID))
}

func TestAddAndRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	bob := f.user(t, "Bob", "b@x.com")
	carol := f.user(t, "Carol", "c@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)

	view, err := f.teamSvc.AddMember(ctx, team.ID, alice.ID, " B@X.com")
	require.NoError(t, err)
	require.Len(t, view.Members, 2)
	assert.Equal(t, "Bob", view.Members[1].User.Name)
	assert.Equal(t, domain.RoleMember, view.Members[1].Role)

	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	requireKind(t, apperr.KindConflict, err)

	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "ghost@x.com")
	requireKind(t, apperr.KindNotFound, err)

	_, err = f.teamSvc.AddMember(ctx, "missing-team", alice.ID, "b@x.com")
	requireKind(t, apperr.KindNotFound, err)

	_, err = f.teamSvc.AddMember(ctx, team.ID, bob.ID, "c@x.com")
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.teamSvc.AddMember(ctx, team.ID, carol.ID, "c@x.com")
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.teamSvc.RemoveMember(ctx, team.ID, alice.ID, "c@x.com")
	requireKind(t, apperr.KindConflict, err)

	_, err = f.teamSvc.RemoveMember(ctx, team.ID, alice.ID, "a@x.com")
	requireKind(t, apperr.KindConflict, err)

	view, err = f.teamSvc.RemoveMember(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)
	assert.Len(t, view.Members, 1)

	assert.Equal(t, []domain.Action{
		domain.ActionCreateTeam, domain.ActionAddMember, domain.ActionRemoveMember,
	}, f.actions(t, team.ID))
}

func TestAdminManagesMembersButNotRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	bob := f.user(t, "Bob", "b@x.com")
	f.user(t, "Carol", "c@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)
	_, err = f.teamSvc.Promote(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)

	_, err = f.teamSvc.AddMember(ctx, team.ID, bob.ID, "c@x.com")
	require.NoError(t, err)

	_, err = f.teamSvc.RemoveMember(ctx, team.ID, bob.ID, "a@x.com")
	requireKind(t, apperr.KindConflict, err)

	_, err = f.teamSvc.Promote(ctx, team.ID, bob.ID, "c@x.com")
	requireKind(t, apperr.KindForbidden, err)

	err = f.teamSvc.Delete(ctx, team.ID, bob.ID)
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.teamSvc.TransferOwnership(ctx, team.ID, bob.ID, "b@x.com")
	requireKind(t, apperr.KindForbidden, err)
}

func TestPromoteAndDemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	f.user(t, "Bob", "b@x.com")
	f.user(t, "Carol", "c@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		op      func() (*TeamView, error)
		want    apperr.Kind
		wantMsg string
	}{
		{"demote plain member", func() (*TeamView, error) { return f.teamSvc.Demote(ctx, team.ID, alice.ID, "b@x.com") }, apperr.KindConflict, "User is already a member"},
		{"promote owner", func() (*TeamView, error) { return f.teamSvc.Promote(ctx, team.ID, alice.ID, "a@x.com") }, apperr.KindConflict, "Owner cannot be promoted"},
		{"demote owner", func() (*TeamView, error) { return f.teamSvc.Demote(ctx, team.ID, alice.ID, "a@x.com") }, apperr.KindConflict, "Owner cannot be demoted"},
		{"promote non-member", func() (*TeamView, error) { return f.teamSvc.Promote(ctx, team.ID, alice.ID, "c@x.com") }, apperr.KindConflict, MsgNotAMember},
		{"promote member", func() (*TeamView, error) { return f.teamSvc.Promote(ctx, team.ID, alice.ID, "b@x.com") }, "", ""},
		{"promote admin again", func() (*TeamView, error) { return f.teamSvc.Promote(ctx, team.ID, alice.ID, "b@x.com") }, apperr.KindConflict, "User is already an admin"},
		{"demote admin", func() (*TeamView, error) { return f.teamSvc.Demote(ctx, team.ID, alice.ID, "b@x.com") }, "", ""},
	}
	for _, tt := range tests {
		_, err := tt.op()
		if tt.want == "" {
			assert.NoError(t, err, tt.name)
			continue
		}
		assert.Equal(t, tt.want, apperr.KindOf(err), tt.name)
		assert.Equal(t, tt.wantMsg, apperr.MessageOf(err), tt.name)
	}

	stored := f.stored(t, team.ID)
	require.NoError(t, stored.CheckOwnership())
	assert.Equal(t, domain.RoleMember, stored.Members[1].Role)
	assert.Equal(t, []domain.Action{
		domain.ActionCreateTeam, domain.ActionAddMember, domain.ActionPromoteAdmin, domain.ActionDemoteAdmin,
	}, f.actions(t, team.ID))
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	bob := f.user(t, "Bob", "b@x.com")
	f.user(t, "Carol", "c@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)

	_, err = f.teamSvc.TransferOwnership(ctx, team.ID, alice.ID, "c@x.com")
	requireKind(t, apperr.KindConflict, err)

	before := f.stored(t, team.ID)
	_, err = f.teamSvc.TransferOwnership(ctx, team.ID, alice.ID, "a@x.com")
	requireKind(t, apperr.KindConflict, err)
	assert.Equal(t, before, f.stored(t, team.ID), "self transfer leaves the team unchanged")

	view, err := f.teamSvc.TransferOwnership(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, view.Owner.ID)
	assert.Equal(t, domain.RoleMember, view.MyRole)

	stored := f.stored(t, team.ID)
	require.NoError(t, stored.CheckOwnership())
	assert.Equal(t, []domain.Member{
		{UserID: alice.ID, Role: domain.RoleMember},
		{UserID: bob.ID, Role: domain.RoleOwner},
	}, stored.Members)

	_, err = f.teamSvc.TransferOwnership(ctx, team.ID, alice.ID, "b@x.com")
	requireKind(t, apperr.KindForbidden, err)
}

func TestDeleteTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)

	require.NoError(t, f.teamSvc.Delete(ctx, team.ID, alice.ID))
	_, err = f.teams.GetByID(ctx, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []domain.Action{domain.ActionCreateTeam, domain.ActionDeleteTeam}, f.actions(t, team.ID),
		"activity outlives the team")

	err = f.teamSvc.Delete(ctx, team.ID, alice.ID)
	requireKind(t, apperr.KindNotFound, err)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	bob := f.user(t, "Bob", "b@x.com")

	eng, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	_, err = f.teamSvc.Create(ctx, bob.ID, "Ops")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, eng.ID, alice.ID, "b@x.com")
	require.NoError(t, err)

	mine, err := f.teamSvc.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Eng", mine[0].Name)

	mine, err = f.teamSvc.ListMine(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	roles := map[string]domain.Role{}
	for _, v := range mine {
		roles[v.Name] = v.MyRole
	}
	assert.Equal(t, map[string]domain.Role{"Eng": domain.RoleMember, "Ops": domain.RoleOwner}, roles)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	bob := f.user(t, "Bob", "b@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	require.NoError(t, err)

	desc := "Builds things"
	tags := []string{" go ", "infra", "go", ""}
	settings, err := f.teamSvc.UpdateSettings(ctx, team.ID, alice.ID, SettingsUpdate{Description: &desc, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Builds things", settings.Description)
	assert.Equal(t, []string{"go", "infra"}, settings.Tags)
	assert.Equal(t, domain.VisibilityPrivate, settings.Visibility, "untouched fields keep their value")

	bad := "secret"
	_, err = f.teamSvc.UpdateSettings(ctx, team.ID, alice.ID, SettingsUpdate{Visibility: &bad})
	requireKind(t, apperr.KindValidation, err)

	_, err = f.teamSvc.UpdateSettings(ctx, team.ID, alice.ID, SettingsUpdate{})
	requireKind(t, apperr.KindValidation, err)

	public := "Public"
	_, err = f.teamSvc.UpdateSettings(ctx, team.ID, bob.ID, SettingsUpdate{Visibility: &public})
	requireKind(t, apperr.KindForbidden, err)

	got, err := f.teamSvc.GetSettings(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eng", got.Name)
	assert.Equal(t, "Builds things", got.Description)

	entries, _, err := f.activity.Query(ctx, domain.ActivityFilter{TeamID: team.ID, Action: domain.ActionUpdateSettings, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"description", "tags"}, entries[0].Details["fields"])
}

func TestActivityFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	f.activity.FailWith = errors.New("activity store down")

	view, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)
	assert.Equal(t, 0, f.activity.Len())
	f.stored(t, view.ID)
}

func TestSaveRefusesBrokenOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice", "a@x.com")
	f.user(t, "Bob", "b@x.com")
	team, err := f.teamSvc.Create(ctx, alice.ID, "Eng")
	require.NoError(t, err)

	// corrupt the stored document so the owner entry is missing its role
	stored := f.stored(t, team.ID)
	stored.Members[0].Role = domain.RoleAdmin
	require.NoError(t, f.teams.Save(ctx, stored))

	_, err = f.teamSvc.AddMember(ctx, team.ID, alice.ID, "b@x.com")
	requireKind(t, apperr.KindInternal, err)
	assert.Len(t, f.stored(t, team.ID).Members, 1)
}
