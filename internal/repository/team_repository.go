package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// PostgresTeamRepository implements domain.TeamRepository using PostgreSQL.
// The member list is stored as a JSONB document column so a team is read and
// written as one row.
type PostgresTeamRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTeamRepository creates a new team repository
func NewPostgresTeamRepository(db *sql.DB, logger *slog.Logger) *PostgresTeamRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTeamRepository{db: db, logger: logger}
}

const teamColumns = `id, name, owner_id, members, description, avatar, visibility, tags, created_at, updated_at`

func scanTeam(row interface{ Scan(...any) error }) (*domain.Team, error) {
	t := &domain.Team{}
	var members []byte
	var tags pq.StringArray
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.OwnerID,
		&members,
		&t.Description,
		&t.Avatar,
		&t.Visibility,
		&tags,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &t.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members of team %s: %w", t.ID, err)
	}
	t.Tags = []string(tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

// Create inserts a new team
func (r *PostgresTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	members, err := json.Marshal(team.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	query := `
		INSERT INTO teams (id, name, owner_id, members, description, avatar, visibility, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		team.ID,
		team.Name,
		team.OwnerID,
		members,
		team.Description,
		team.Avatar,
		team.Visibility,
		pq.Array(team.Tags),
	).Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create team",
			slog.String("team_id", team.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetByID retrieves a team by ID
func (r *PostgresTeamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	if !validID(id) {
		return nil, fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// ListByMember returns every team whose member list contains userID
func (r *PostgresTeamRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Team, error) {
	probe, err := json.Marshal([]map[string]string{{"user": userID}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode member probe: %w", err)
	}

	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE members @> $1::jsonb
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, probe)
	if err != nil {
		r.logger.Error("failed to list teams by member",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	out := []*domain.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save writes the whole team document back. Concurrent saves are
// last-writer-wins.
func (r *PostgresTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	members, err := json.Marshal(team.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	query := `
		UPDATE teams
		SET name = $1, owner_id = $2, members = $3, description = $4,
		    avatar = $5, visibility = $6, tags = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		team.Name,
		team.OwnerID,
		members,
		team.Description,
		team.Avatar,
		team.Visibility,
		pq.Array(team.Tags),
		team.ID,
	).Scan(&team.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("team %s: %w", team.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

// Delete removes a team row
func (r *PostgresTeamRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of teams
func (r *PostgresTeamRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM teams`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return n, nil
}
