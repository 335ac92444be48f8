package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/observability/metrics"
)

// Purger is a cache that can drop its expired entries. Purge returns the
// number of live entries left.
type Purger interface {
	Purge() int
}

// StatsWorker periodically refreshes the team and pending invite gauges and
// sweeps expired entries from an in-process cache
type StatsWorker struct {
	teams    domain.TeamRepository
	invites  domain.InviteRepository
	cache    Purger
	logger   *slog.Logger
	interval time.Duration
}

// NewStatsWorker creates a new stats worker. cache may be nil.
func NewStatsWorker(
	teams domain.TeamRepository,
	invites domain.InviteRepository,
	cache Purger,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{
		teams:    teams,
		invites:  invites,
		cache:    cache,
		logger:   logger,
		interval: interval,
	}
}

// Start runs the refresh loop until ctx is cancelled. The gauges are set
// once immediately so they are not empty until the first tick.
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	teams, err := w.teams.Count(ctx)
	if err != nil {
		w.logger.Error("failed to count teams", slog.String("error", err.Error()))
	} else {
		metrics.SetTeams(teams)
	}

	pending, err := w.invites.CountPending(ctx)
	if err != nil {
		w.logger.Error("failed to count pending invites", slog.String("error", err.Error()))
	} else {
		metrics.SetPendingInvites(pending)
	}

	if w.cache != nil {
		w.logger.Debug("cache swept", slog.Int("entries", w.cache.Purge()))
	}
}
