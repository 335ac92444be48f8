package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/repotest"
	"github.com/aryan0dhankhar/teamhub/pkg/database"
)

// TestPostgresRepositories runs the shared repository suite against a real
// database. Set TEAMHUB_TEST_DATABASE_URL to enable it.
func TestPostgresRepositories(t *testing.T) {
	url := os.Getenv("TEAMHUB_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEAMHUB_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	log := logger.Discard()
	pool, err := database.NewConnectionPool(ctx, &database.Config{URL: url}, log)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, pool.Migrate(ctx))

	db := pool.GetDB()
	repotest.Run(t, func(t *testing.T) repotest.Repos {
		return repotest.Repos{
			Users:    NewPostgresUserRepository(db, log),
			Teams:    NewPostgresTeamRepository(db, log),
			Invites:  NewPostgresInviteRepository(db, log),
			Activity: NewPostgresActivityRepository(db, log),
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, isUniqueViolation(nil))
	require.False(t, isUniqueViolation(context.Canceled))
	require.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	require.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
}

func TestValidID(t *testing.T) {
	require.True(t, validID("8c5a3f7e-2b1d-4c8e-9f0a-1b2c3d4e5f60"))
	require.False(t, validID("missing"))
	require.False(t, validID(""))
}
