package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
)

type countingPurger struct{ calls int }

func (p *countingPurger) Purge() int {
	p.calls++
	return 0
}

type failingInvites struct{ domain.InviteRepository }

func (failingInvites) CountPending(context.Context) (int, error) {
	return 0, errors.New("store down")
}

func seed(t *testing.T) (*memory.TeamRepository, *memory.InviteRepository) {
	t.Helper()
	ctx := context.Background()
	teams := memory.NewTeamRepository()
	invites := memory.NewInviteRepository()
	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, teams.Create(ctx, domain.NewTeam(id, id, "owner")))
	}
	require.NoError(t, invites.Create(ctx, &domain.Invite{ID: "i1", TeamID: "t1", Email: "a@x.com", InvitedBy: "owner", Status: domain.InvitePending}))
	return teams, invites
}

// gauge reads a gauge from the default registry
func gauge(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not registered", name)
	return 0
}

func TestStatsWorkerRefresh(t *testing.T) {
	teams, invites := seed(t)
	purger := &countingPurger{}
	w := NewStatsWorker(teams, invites, purger, logger.Discard(), time.Hour)

	w.refresh(context.Background())

	assert.Equal(t, 2.0, gauge(t, "teamhub_teams"))
	assert.Equal(t, 1.0, gauge(t, "teamhub_pending_invites"))
	assert.Equal(t, 1, purger.calls)
}

func TestStatsWorkerKeepsGoingOnErrors(t *testing.T) {
	teams, invites := seed(t)
	w := NewStatsWorker(teams, failingInvites{invites}, nil, logger.Discard(), time.Hour)
	assert.NotPanics(t, func() { w.refresh(context.Background()) })
}

func TestStatsWorkerStopsWithContext(t *testing.T) {
	teams, invites := seed(t)
	w := NewStatsWorker(teams, invites, nil, logger.Discard(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
