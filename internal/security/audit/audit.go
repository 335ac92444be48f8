// Package audit records team activity and security audit lines.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

type requestIDKey struct{}

// WithRequestID stores the request id on ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored on ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Publisher receives entries after they are stored
type Publisher interface {
	Publish(entry *domain.ActivityEntry)
}

// Recorder appends activity entries and emits one structured audit line per
// entry. Record returns the store error and leaves the decision to ignore it
// to the caller.
type Recorder struct {
	activity  domain.ActivityRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(activity domain.ActivityRepository, publisher Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{activity: activity, publisher: publisher, logger: logger}
}

// Record stores one activity entry for teamID performed by userID
func (r *Recorder) Record(ctx context.Context, teamID, userID string, action domain.Action, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	entry := &domain.ActivityEntry{
		ID:      uuid.NewString(),
		TeamID:  teamID,
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	if err := r.activity.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s for team %s: %w", action, teamID, err)
	}

	r.logger.Info("audit",
		slog.String("action", string(action)),
		slog.String("team_id", teamID),
		slog.String("user_id", userID),
		slog.String("status", "recorded"),
		slog.String("request_id", RequestID(ctx)),
	)
	if r.publisher != nil {
		r.publisher.Publish(entry)
	}
	return nil
}

// LogDenied writes an audit line for a rejected request
func (r *Recorder) LogDenied(ctx context.Context, userID, method, path string, status int) {
	r.logger.Warn("audit",
		slog.String("action", "access_denied"),
		slog.String("user_id", userID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("request_id", RequestID(ctx)),
	)
}
