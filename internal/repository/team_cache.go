package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/teamhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamhub/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/teamhub/pkg/cache"
)

// TeamCache holds recently read team documents. Implementations swallow
// their own failures: a broken cache only costs a store round trip.
type TeamCache interface {
	Get(ctx context.Context, id string) (*domain.Team, bool)
	Set(ctx context.Context, team *domain.Team)
	Invalidate(ctx context.Context, id string)
}

func teamKey(id string) string { return "teamhub:team:" + id }

// KV is the subset of the Redis client the team cache uses
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisTeamCache stores JSON-encoded teams in Redis behind a circuit
// breaker, so an unavailable Redis is skipped instead of slowing every read.
type RedisTeamCache struct {
	kv      KV
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedisTeamCache creates a Redis-backed team cache
func NewRedisTeamCache(kv KV, ttl time.Duration, logger *slog.Logger) *RedisTeamCache {
	if logger == nil {
		logger = slog.Default()
	}
	cb := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("team cache circuit breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &RedisTeamCache{kv: kv, ttl: ttl, breaker: cb, logger: logger}
}

func (c *RedisTeamCache) Get(ctx context.Context, id string) (*domain.Team, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.kv.Get(ctx, teamKey(id))
		if errors.Is(err, redis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrOpen) {
			c.logger.Warn("team cache read failed", slog.String("team_id", id), slog.String("error", err.Error()))
		}
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var team domain.Team
	if err := json.Unmarshal(data, &team); err != nil {
		c.logger.Warn("discarding undecodable cached team", slog.String("team_id", id), slog.String("error", err.Error()))
		return nil, false
	}
	return &team, true
}

func (c *RedisTeamCache) Set(ctx context.Context, team *domain.Team) {
	data, err := json.Marshal(team)
	if err != nil {
		return
	}
	err = c.breaker.Execute(func() error {
		return c.kv.Set(ctx, teamKey(team.ID), data, c.ttl)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		c.logger.Warn("team cache write failed", slog.String("team_id", team.ID), slog.String("error", err.Error()))
	}
}

// Invalidate deletes the cached copy. It bypasses the breaker: a stale entry
// outliving a write is worse than one extra failed call.
func (c *RedisTeamCache) Invalidate(ctx context.Context, id string) {
	if err := c.kv.Delete(ctx, teamKey(id)); err != nil {
		c.logger.Warn("team cache invalidation failed", slog.String("team_id", id), slog.String("error", err.Error()))
	}
}

// MemoryTeamCache keeps teams in process memory
type MemoryTeamCache struct {
	items *cache.Cache[*domain.Team]
	ttl   time.Duration
}

// NewMemoryTeamCache creates an in-process team cache
func NewMemoryTeamCache(ttl time.Duration) *MemoryTeamCache {
	return &MemoryTeamCache{items: cache.New[*domain.Team](), ttl: ttl}
}

func (c *MemoryTeamCache) Get(_ context.Context, id string) (*domain.Team, bool) {
	t, ok := c.items.Get(teamKey(id))
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (c *MemoryTeamCache) Set(_ context.Context, team *domain.Team) {
	c.items.Set(teamKey(team.ID), team.Clone(), c.ttl)
}

func (c *MemoryTeamCache) Invalidate(_ context.Context, id string) {
	c.items.Delete(teamKey(id))
}

// Purge drops expired entries and returns how many remain
func (c *MemoryTeamCache) Purge() int {
	return c.items.Purge()
}

// CachedTeamRepository is a read-through cache in front of a
// domain.TeamRepository. Writes go to the store first and then drop the
// cached copy.
type CachedTeamRepository struct {
	domain.TeamRepository
	cache TeamCache
}

// NewCachedTeamRepository wraps next with cache
func NewCachedTeamRepository(next domain.TeamRepository, cache TeamCache) *CachedTeamRepository {
	return &CachedTeamRepository{TeamRepository: next, cache: cache}
}

func (r *CachedTeamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	if t, ok := r.cache.Get(ctx, id); ok {
		metrics.ObserveTeamCache(true)
		return t, nil
	}
	metrics.ObserveTeamCache(false)

	t, err := r.TeamRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, t)
	return t, nil
}

func (r *CachedTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	err := r.TeamRepository.Save(ctx, team)
	r.cache.Invalidate(ctx, team.ID)
	return err
}

func (r *CachedTeamRepository) Delete(ctx context.Context, id string) error {
	err := r.TeamRepository.Delete(ctx, id)
	r.cache.Invalidate(ctx, id)
	return err
}
