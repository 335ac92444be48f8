package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// TeamRepository implements domain.TeamRepository in memory.
// Teams are cloned on the way in and out so callers never share state.
type TeamRepository struct {
	mu    sync.RWMutex
	teams map[string]*domain.Team
}

// NewTeamRepository creates an empty team repository
func NewTeamRepository() *TeamRepository {
	return &TeamRepository{teams: map[string]*domain.Team{}}
}

func (r *TeamRepository) Create(_ context.Context, team *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[team.ID]; exists {
		return fmt.Errorf("team %s: %w", team.ID, domain.ErrDuplicate)
	}
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	r.teams[team.ID] = team.Clone()
	return nil
}

func (r *TeamRepository) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.teams[id]; ok {
		return t.Clone(), nil
	}
	return nil, fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
}

func (r *TeamRepository) ListByMember(_ context.Context, userID string) ([]*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Team{}
	for _, t := range r.teams {
		if t.IsMember(userID) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *TeamRepository) Save(_ context.Context, team *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[team.ID]; !ok {
		return fmt.Errorf("team %s: %w", team.ID, domain.ErrNotFound)
	}
	team.UpdatedAt = time.Now().UTC()
	r.teams[team.ID] = team.Clone()
	return nil
}

func (r *TeamRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
	}
	delete(r.teams, id)
	return nil
}

func (r *TeamRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams), nil
}
