package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet error
	gets    int
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return nil, f.failGet
	}
	v, ok := f.data[key]
	if !ok {
		return nil, redis.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type countingTeams struct {
	*memory.TeamRepository
	reads int
}

func (c *countingTeams) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	c.reads++
	return c.TeamRepository.GetByID(ctx, id)
}

func seedTeam(t *testing.T, repo domain.TeamRepository) *domain.Team {
	t.Helper()
	team := domain.NewTeam(uuid.NewString(), "Core", uuid.NewString())
	require.NoError(t, repo.Create(context.Background(), team))
	return team
}

func TestCachedTeamRepository(t *testing.T) {
	caches := map[string]func() TeamCache{
		"redis":  func() TeamCache { return NewRedisTeamCache(newFakeKV(), time.Minute, logger.Discard()) },
		"memory": func() TeamCache { return NewMemoryTeamCache(time.Minute) },
	}
	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			inner := &countingTeams{TeamRepository: memory.NewTeamRepository()}
			repo := NewCachedTeamRepository(inner, newCache())
			team := seedTeam(t, repo)

			_, err := repo.GetByID(ctx, team.ID)
			require.NoError(t, err)
			got, err := repo.GetByID(ctx, team.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, inner.reads, "second read served from cache")
			assert.Equal(t, team.OwnerID, got.OwnerID)

			got.Name = "Renamed"
			require.NoError(t, repo.Save(ctx, got))
			got, err = repo.GetByID(ctx, team.ID)
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Name)
			assert.Equal(t, 2, inner.reads, "save invalidates")

			require.NoError(t, repo.Delete(ctx, team.ID))
			_, err = repo.GetByID(ctx, team.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestMemoryTeamCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTeamCache(time.Minute)
	team := domain.NewTeam("t1", "Core", "u1")
	c.Set(ctx, team)

	got, ok := c.Get(ctx, "t1")
	require.True(t, ok)
	got.Members[0].Role = domain.RoleMember

	again, _ := c.Get(ctx, "t1")
	assert.Equal(t, domain.RoleOwner, again.Members[0].Role)
}

func TestRedisTeamCacheOpensBreakerOnFailures(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failGet = errors.New("connection refused")
	c := NewRedisTeamCache(kv, time.Minute, logger.Discard())

	for i := 0; i < 10; i++ {
		_, ok := c.Get(ctx, "t1")
		assert.False(t, ok)
	}
	assert.Equal(t, 5, kv.gets, "breaker stops calling redis after the threshold")
}
