package service

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/security"
)

// Pagination defaults for the activity log
const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityQuery holds the raw filters of an activity log request. Empty
// fields disable their filter.
type ActivityQuery struct {
	Action    string
	UserID    string
	StartDate string
	EndDate   string
	Page      string
	Limit     string
}

// LogView is an activity entry with its actor resolved
type LogView struct {
	*domain.ActivityEntry
	Actor domain.UserSummary `json:"actor"`
}

// ActivityPage is one page of a team's activity log
type ActivityPage struct {
	Logs       []LogView `json:"logs"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// ActivityService reads a team's activity log
type ActivityService struct {
	activity domain.ActivityRepository
	users    domain.UserRepository
	gate     *security.TeamGate
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewActivityService creates a new activity service
func NewActivityService(activity domain.ActivityRepository, users domain.UserRepository, gate *security.TeamGate, logger *slog.Logger) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{
		activity: activity,
		users:    users,
		gate:     gate,
		logger:   logger,
		tracer:   otel.Tracer("teamhub/service"),
	}
}

// Query returns one page of the team's activity, newest first. Any member
// may read it.
func (s *ActivityService) Query(ctx context.Context, teamID, callerID string, q ActivityQuery) (page *ActivityPage, err error) {
	ctx, end := begin(ctx, s.tracer, "query_activity")
	defer func() { end(err) }()

	if _, _, err := s.gate.AuthorizePermission(ctx, teamID, callerID, security.PermReadActivity); err != nil {
		return nil, err
	}
	filter, err := ParseActivityQuery(q)
	if err != nil {
		return nil, err
	}
	filter.TeamID = teamID

	entries, total, err := s.activity.Query(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to query activity", err)
	}

	logs, err := s.resolveActors(ctx, entries)
	if err != nil {
		return nil, err
	}
	return &ActivityPage{
		Logs:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *ActivityService) resolveActors(ctx context.Context, entries []*domain.ActivityEntry) ([]LogView, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	byID, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to resolve actors", err)
	}

	logs := make([]LogView, 0, len(entries))
	for _, e := range entries {
		actor := domain.UserSummary{ID: e.UserID}
		if u, ok := byID[e.UserID]; ok {
			actor = u.Summary()
		}
		logs = append(logs, LogView{ActivityEntry: e, Actor: actor})
	}
	return logs, nil
}

// ParseActivityQuery validates raw filters into a domain filter with
// pagination defaults applied. Dates are RFC 3339 or YYYY-MM-DD; a bare
// end date covers that whole day.
func ParseActivityQuery(q ActivityQuery) (domain.ActivityFilter, error) {
	f := domain.ActivityFilter{
		UserID: strings.TrimSpace(q.UserID),
		Page:   1,
		Limit:  DefaultActivityLimit,
	}

	if a := strings.TrimSpace(q.Action); a != "" {
		f.Action = domain.Action(strings.ToUpper(a))
		if !f.Action.Valid() {
			return f, apperr.Validation("Unknown action " + a)
		}
	}

	var err error
	if q.StartDate != "" {
		if f.Start, _, err = parseDate(q.StartDate); err != nil {
			return f, apperr.Validation("Invalid startDate")
		}
	}
	if q.EndDate != "" {
		end, dateOnly, err := parseDate(q.EndDate)
		if err != nil {
			return f, apperr.Validation("Invalid endDate")
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		f.End = end
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) {
		return f, apperr.Validation("startDate must not be after endDate")
	}

	if q.Page != "" {
		page, err := strconv.Atoi(q.Page)
		if err != nil || page < 1 {
			return f, apperr.Validation("page must be a positive integer")
		}
		f.Page = page
	}
	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 {
			return f, apperr.Validation("limit must be a positive integer")
		}
		f.Limit = min(limit, MaxActivityLimit)
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return f, apperr.Validation("page is out of range")
	}
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}
