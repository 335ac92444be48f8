package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

type storedInvite struct {
	invite domain.Invite
	seq    int
}

// InviteRepository implements domain.InviteRepository in memory
type InviteRepository struct {
	mu      sync.RWMutex
	invites map[string]*storedInvite
	seq     int
}

// NewInviteRepository creates an empty invite repository
func NewInviteRepository() *InviteRepository {
	return &InviteRepository{invites: map[string]*storedInvite{}}
}

func (r *InviteRepository) Create(_ context.Context, invite *domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.invites {
		if s.invite.Status == domain.InvitePending && s.invite.TeamID == invite.TeamID && s.invite.Email == invite.Email {
			return fmt.Errorf("pending invite for %s: %w", invite.Email, domain.ErrDuplicate)
		}
	}
	now := time.Now().UTC()
	invite.CreatedAt = now
	invite.UpdatedAt = now
	r.seq++
	r.invites[invite.ID] = &storedInvite{invite: *invite, seq: r.seq}
	return nil
}

func (r *InviteRepository) GetByID(_ context.Context, id string) (*domain.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.invites[id]; ok {
		inv := s.invite
		return &inv, nil
	}
	return nil, fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
}

func (r *InviteRepository) FindPending(_ context.Context, teamID, email string) (*domain.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.invites {
		if s.invite.Status == domain.InvitePending && s.invite.TeamID == teamID && s.invite.Email == email {
			inv := s.invite
			return &inv, nil
		}
	}
	return nil, fmt.Errorf("pending invite for %s: %w", email, domain.ErrNotFound)
}

func (r *InviteRepository) ListPendingByTeam(_ context.Context, teamID string) ([]*domain.Invite, error) {
	return r.listPending(func(inv *domain.Invite) bool { return inv.TeamID == teamID }), nil
}

func (r *InviteRepository) ListPendingByEmail(_ context.Context, email string) ([]*domain.Invite, error) {
	return r.listPending(func(inv *domain.Invite) bool { return inv.Email == email }), nil
}

// listPending returns matching pending invites, newest first
func (r *InviteRepository) listPending(match func(*domain.Invite) bool) []*domain.Invite {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*storedInvite
	for _, s := range r.invites {
		if s.invite.Status == domain.InvitePending && match(&s.invite) {
			found = append(found, s)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq > found[j].seq })

	out := make([]*domain.Invite, len(found))
	for i, s := range found {
		inv := s.invite
		out[i] = &inv
	}
	return out
}

func (r *InviteRepository) UpdateStatus(_ context.Context, id string, from, to domain.InviteStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.invites[id]
	if !ok {
		return fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
	}
	if s.invite.Status != from {
		return fmt.Errorf("invite %s is %s: %w", id, s.invite.Status, domain.ErrStaleStatus)
	}
	s.invite.Status = to
	s.invite.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InviteRepository) CountPending(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.invites {
		if s.invite.Status == domain.InvitePending {
			n++
		}
	}
	return n, nil
}
