package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied in order on startup. Every statement is idempotent.
// activity_logs.team_id deliberately carries no foreign key: entries outlive
// the team they describe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		owner_id    UUID NOT NULL REFERENCES users(id),
		members     JSONB NOT NULL DEFAULT '[]'::jsonb,
		description TEXT NOT NULL DEFAULT '',
		avatar      TEXT NOT NULL DEFAULT '',
		visibility  TEXT NOT NULL DEFAULT 'private' CHECK (visibility IN ('private', 'public')),
		tags        TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS teams_members_gin ON teams USING GIN (members jsonb_path_ops)`,
	`CREATE TABLE IF NOT EXISTS invites (
		id          UUID PRIMARY KEY,
		team_id     UUID NOT NULL,
		email       TEXT NOT NULL,
		invited_by  UUID NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined', 'cancelled')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS invites_one_pending_per_email
		ON invites (team_id, email) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS invites_pending_email
		ON invites (email, created_at DESC) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id         UUID PRIMARY KEY,
		team_id    UUID NOT NULL,
		user_id    UUID NOT NULL,
		action     TEXT NOT NULL,
		details    JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS activity_logs_team_created
		ON activity_logs (team_id, created_at DESC)`,
}

// Migrate creates the tables and indexes the repositories rely on
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	cp.logger.Info("database schema up to date", slog.Int("statements", len(schema)))
	return nil
}
