package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// PostgresActivityRepository implements domain.ActivityRepository using
// PostgreSQL. Rows are never updated or deleted.
type PostgresActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresActivityRepository creates a new activity repository
func NewPostgresActivityRepository(db *sql.DB, logger *slog.Logger) *PostgresActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresActivityRepository{db: db, logger: logger}
}

// Append inserts one entry
func (r *PostgresActivityRepository) Append(ctx context.Context, entry *domain.ActivityEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, team_id, user_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.TeamID,
		entry.UserID,
		entry.Action,
		raw,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// Query returns one page of matching entries, newest first, and the total
// number of matches.
func (r *PostgresActivityRepository) Query(ctx context.Context, filter domain.ActivityFilter) ([]*domain.ActivityEntry, int, error) {
	if filter.UserID != "" && !validID(filter.UserID) {
		return []*domain.ActivityEntry{}, 0, nil
	}
	where, args := activityWhere(filter)

	var total int
	countQuery := `SELECT count(*) FROM activity_logs WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}

	query := `
		SELECT id, team_id, user_id, action, details, created_at
		FROM activity_logs
		WHERE ` + where + `
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset())
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query activity",
			slog.String("team_id", filter.TeamID),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	out := []*domain.ActivityEntry{}
	for rows.Next() {
		e := &domain.ActivityEntry{}
		var raw []byte
		if err := rows.Scan(&e.ID, &e.TeamID, &e.UserID, &e.Action, &raw, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Details); err != nil {
			return nil, 0, fmt.Errorf("failed to decode activity details: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func activityWhere(f domain.ActivityFilter) (string, []any) {
	clauses := []string{"team_id = $1"}
	args := []any{f.TeamID}

	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if !f.Start.IsZero() {
		add("created_at >= $%d", f.Start)
	}
	if !f.End.IsZero() {
		add("created_at <= $%d", f.End)
	}
	return strings.Join(clauses, " AND "), args
}
