// Package memory holds mutex-guarded in-memory implementations of the domain
// repositories. They back STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// UserRepository implements domain.UserRepository in memory
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

// NewUserRepository creates an empty user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    map[string]*domain.User{},
		byEmail: map[string]*domain.User{},
	}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("email %s: %w", user.Email, domain.ErrDuplicate)
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = &stored
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byEmail[email]; ok {
		c := *u
		return &c, nil
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			c := *u
			out[id] = &c
		}
	}
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	if other, taken := r.byEmail[user.Email]; taken && other.ID != user.ID {
		return fmt.Errorf("email %s: %w", user.Email, domain.ErrDuplicate)
	}
	delete(r.byEmail, current.Email)
	user.UpdatedAt = time.Now().UTC()
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = &stored
	return nil
}
