package service

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/observability/metrics"
)

// ActivityRecorder stores one activity entry. audit.Recorder implements it.
type ActivityRecorder interface {
	Record(ctx context.Context, teamID, userID string, action domain.Action, details map[string]any) error
}

// recordActivity applies the fire-and-forget policy: a failed write is
// logged and counted, never returned to the caller.
func recordActivity(ctx context.Context, rec ActivityRecorder, logger *slog.Logger, teamID, userID string, action domain.Action, details map[string]any) {
	if err := rec.Record(ctx, teamID, userID, action, details); err != nil {
		metrics.ActivityWriteFailed()
		logger.Error("activity log write failed",
			slog.String("team_id", teamID),
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}

// observe counts the outcome of a service operation and passes err through
func observe(operation string, err error) error {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	metrics.ObserveTeamOperation(operation, result)
	return err
}
