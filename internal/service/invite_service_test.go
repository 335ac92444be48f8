package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/featureflags"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
	"github.com/aryan0dhankhar/teamhub/internal/security"
	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
)

// The walkthrough: A creates Eng, invites B, B accepts, A promotes B, and A
// cannot demote themselves.
func TestInviteWalkthrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")

	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{{UserID: a.ID, Role: domain.RoleOwner}}, f.stored(t, team.ID).Members)

	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitePending, inv.Status)

	accepted, view, err := f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteAccepted, accepted.Status)
	assert.Equal(t, domain.RoleMember, view.MyRole)
	assert.Equal(t, []domain.Member{
		{UserID: a.ID, Role: domain.RoleOwner},
		{UserID: b.ID, Role: domain.RoleMember},
	}, f.stored(t, team.ID).Members)

	stored, err := f.invites.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteAccepted, stored.Status)

	_, err = f.teamSvc.Promote(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, f.stored(t, team.ID).Member(b.ID).Role)

	_, err = f.teamSvc.Demote(ctx, team.ID, a.ID, "a@x.com")
	requireKind(t, apperr.KindConflict, err)
	require.NoError(t, f.stored(t, team.ID).CheckOwnership())

	assert.Equal(t, []domain.Action{
		domain.ActionCreateTeam, domain.ActionSendInvite, domain.ActionAcceptInvite, domain.ActionPromoteAdmin,
	}, f.actions(t, team.ID))
}

func TestSendInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)

	_, err = f.inviteSvc.Send(ctx, team.ID, a.ID, "")
	requireKind(t, apperr.KindValidation, err)

	_, err = f.inviteSvc.Send(ctx, team.ID, b.ID, "c@x.com")
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.inviteSvc.Send(ctx, team.ID, a.ID, "New.Person@x.com")
	require.NoError(t, err, "unregistered addresses can be invited")

	_, err = f.inviteSvc.Send(ctx, team.ID, a.ID, "new.person@X.com ")
	requireKind(t, apperr.KindConflict, err)

	pending, err := f.inviteSvc.ListForTeam(ctx, team.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new.person@x.com", pending[0].Email)

	_, err = f.inviteSvc.Send(ctx, "missing", a.ID, "z@x.com")
	requireKind(t, apperr.KindNotFound, err)
}

func TestSendInviteToExistingMember(t *testing.T) {
	for _, rejectMembers := range []bool{false, true} {
		var flags []string
		if rejectMembers {
			flags = append(flags, featureflags.InviteRejectMembers)
		}
		f := newFixture(t, flags...)
		ctx := context.Background()
		a := f.user(t, "A", "a@x.com")
		f.user(t, "B", "b@x.com")
		team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
		require.NoError(t, err)
		_, err = f.teamSvc.AddMember(ctx, team.ID, a.ID, "b@x.com")
		require.NoError(t, err)

		_, err = f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
		if rejectMembers {
			requireKind(t, apperr.KindConflict, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestAcceptNeverDuplicatesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)

	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)
	_, err = f.teamSvc.AddMember(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)

	_, _, err = f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, f.stored(t, team.ID).Members, 2)
}

func TestInviteeOnlyResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	c := f.user(t, "C", "c@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)

	_, _, err = f.inviteSvc.Accept(ctx, inv.ID, c.ID)
	requireKind(t, apperr.KindForbidden, err)
	_, err = f.inviteSvc.Decline(ctx, inv.ID, a.ID)
	requireKind(t, apperr.KindForbidden, err)
	_, _, err = f.inviteSvc.Accept(ctx, "missing", b.ID)
	requireKind(t, apperr.KindNotFound, err)

	mine, err := f.inviteSvc.ListMine(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	declined, err := f.inviteSvc.Decline(ctx, inv.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteDeclined, declined.Status)
	assert.False(t, f.stored(t, team.ID).IsMember(b.ID))

	mine, err = f.inviteSvc.ListMine(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestTerminalInvitesRejectEveryTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)

	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)
	_, err = f.inviteSvc.Cancel(ctx, inv.ID, a.ID)
	require.NoError(t, err)

	_, _, err = f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	requireKind(t, apperr.KindConflict, err)
	_, err = f.inviteSvc.Decline(ctx, inv.ID, b.ID)
	requireKind(t, apperr.KindConflict, err)
	_, err = f.inviteSvc.Cancel(ctx, inv.ID, a.ID)
	requireKind(t, apperr.KindConflict, err)

	stored, err := f.invites.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteCancelled, stored.Status)
	assert.False(t, f.stored(t, team.ID).IsMember(b.ID))

	_, err = f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	assert.NoError(t, err, "a resolved invite does not block a new one")
}

func TestCancelRequiresManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)

	_, err = f.inviteSvc.Cancel(ctx, inv.ID, b.ID)
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.inviteSvc.ListForTeam(ctx, team.ID, b.ID)
	requireKind(t, apperr.KindForbidden, err)
}

func TestAcceptAfterTeamDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)
	require.NoError(t, f.teamSvc.Delete(ctx, team.ID, a.ID))

	_, _, err = f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	requireKind(t, apperr.KindNotFound, err)
}

func TestRacingResolutionsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errs[0] = f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.inviteSvc.Cancel(ctx, inv.ID, a.ID)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded)
}

type unsavableTeams struct {
	*memory.TeamRepository
}

func (unsavableTeams) Save(context.Context, *domain.Team) error {
	return errors.New("team store down")
}

func TestAcceptReopensInviteWhenJoinFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "A", "a@x.com")
	b := f.user(t, "B", "b@x.com")
	team, err := f.teamSvc.Create(ctx, a.ID, "Eng")
	require.NoError(t, err)
	inv, err := f.inviteSvc.Send(ctx, team.ID, a.ID, "b@x.com")
	require.NoError(t, err)

	log := logger.Discard()
	teams := unsavableTeams{f.teams}
	broken := NewInviteService(f.invites, teams, f.users, security.NewTeamGate(teams, log),
		audit.NewRecorder(f.activity, nil, log), featureflags.Static(), log)

	_, _, err = broken.Accept(ctx, inv.ID, b.ID)
	requireKind(t, apperr.KindInternal, err)

	stored, err := f.invites.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitePending, stored.Status)
	assert.False(t, f.stored(t, team.ID).IsMember(b.ID))

	_, view, err := f.inviteSvc.Accept(ctx, inv.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, view.MyRole)
}
