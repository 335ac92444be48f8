package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// PostgresInviteRepository implements domain.InviteRepository using
// PostgreSQL. The partial unique index invites_one_pending_per_email
// enforces one pending invite per (team, email).
type PostgresInviteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresInviteRepository creates a new invite repository
func NewPostgresInviteRepository(db *sql.DB, logger *slog.Logger) *PostgresInviteRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInviteRepository{db: db, logger: logger}
}

const inviteColumns = `id, team_id, email, invited_by, status, created_at, updated_at`

func scanInvite(row interface{ Scan(...any) error }) (*domain.Invite, error) {
	inv := &domain.Invite{}
	err := row.Scan(
		&inv.ID,
		&inv.TeamID,
		&inv.Email,
		&inv.InvitedBy,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}

// Create inserts a pending invite
func (r *PostgresInviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	query := `
		INSERT INTO invites (id, team_id, email, invited_by, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		invite.ID,
		invite.TeamID,
		invite.Email,
		invite.InvitedBy,
		invite.Status,
	).Scan(&invite.CreatedAt, &invite.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending invite for %s: %w", invite.Email, domain.ErrDuplicate)
		}
		r.logger.Error("failed to create invite",
			slog.String("team_id", invite.TeamID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetByID retrieves an invite by ID
func (r *PostgresInviteRepository) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	if !validID(id) {
		return nil, fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
	}
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return inv, nil
}

// FindPending retrieves the pending invite for (team, email)
func (r *PostgresInviteRepository) FindPending(ctx context.Context, teamID, email string) (*domain.Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE team_id = $1 AND email = $2 AND status = 'pending'
	`
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, teamID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pending invite for %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find pending invite: %w", err)
	}
	return inv, nil
}

// ListPendingByTeam lists a team's pending invites, newest first
func (r *PostgresInviteRepository) ListPendingByTeam(ctx context.Context, teamID string) ([]*domain.Invite, error) {
	return r.list(ctx, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE team_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`, teamID)
}

// ListPendingByEmail lists the pending invites addressed to email, newest first
func (r *PostgresInviteRepository) ListPendingByEmail(ctx context.Context, email string) ([]*domain.Invite, error) {
	return r.list(ctx, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE email = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`, email)
}

func (r *PostgresInviteRepository) list(ctx context.Context, query string, arg string) ([]*domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	out := []*domain.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateStatus moves an invite from one status to another. The WHERE clause
// makes it a compare-and-set, so two racing resolutions cannot both apply.
func (r *PostgresInviteRepository) UpdateStatus(ctx context.Context, id string, from, to domain.InviteStatus) error {
	if !validID(id) {
		return fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("invite %s is no longer %s: %w", id, from, domain.ErrStaleStatus)
	}
	return nil
}

// CountPending returns the number of pending invites
func (r *PostgresInviteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM invites WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count invites: %w", err)
	}
	return n, nil
}
