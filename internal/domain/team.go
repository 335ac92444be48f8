package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is a member's role inside a team
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Visibility controls who can discover a team
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Member is one entry of a team's embedded member list
type Member struct {
	UserID string `json:"user"`
	Role   Role   `json:"role"`
}

// Team is a team document. Members is ordered by join time.
type Team struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	OwnerID     string     `json:"owner"`
	Members     []Member   `json:"members"`
	Description string     `json:"description"`
	Avatar      string     `json:"avatar"`
	Visibility  Visibility `json:"visibility"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewTeam builds a private team whose only member is its owner
func NewTeam(id, name, ownerID string) *Team {
	return &Team{
		ID:         id,
		Name:       name,
		OwnerID:    ownerID,
		Members:    []Member{{UserID: ownerID, Role: RoleOwner}},
		Visibility: VisibilityPrivate,
		Tags:       []string{},
	}
}

// Member returns the membership entry of userID, or nil
func (t *Team) Member(userID string) *Member {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}

// IsMember reports whether userID is in the member list
func (t *Team) IsMember(userID string) bool {
	return t.Member(userID) != nil
}

// RemoveMember drops userID from the member list, keeping order.
// It reports whether an entry was removed.
func (t *Team) RemoveMember(userID string) bool {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return true
		}
	}
	return false
}

// TransferOwnership swaps the owner role from the current owner to
// newOwnerID, who must already be a member.
func (t *Team) TransferOwnership(newOwnerID string) error {
	next := t.Member(newOwnerID)
	if next == nil {
		return fmt.Errorf("user %s is not a member of team %s", newOwnerID, t.ID)
	}
	if prev := t.Member(t.OwnerID); prev != nil {
		prev.Role = RoleMember
	}
	next.Role = RoleOwner
	t.OwnerID = newOwnerID
	return nil
}

// CheckOwnership verifies that the owner appears exactly once in the member
// list with role owner, that no other member is an owner and that nobody is
// listed twice.
func (t *Team) CheckOwnership() error {
	if len(t.Members) == 0 {
		return fmt.Errorf("team %s has no members", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Members))
	owners := 0
	for _, m := range t.Members {
		if _, dup := seen[m.UserID]; dup {
			return fmt.Errorf("user %s listed twice in team %s", m.UserID, t.ID)
		}
		seen[m.UserID] = struct{}{}
		if !m.Role.Valid() {
			return fmt.Errorf("invalid role %q in team %s", m.Role, t.ID)
		}
		if m.Role == RoleOwner {
			owners++
			if m.UserID != t.OwnerID {
				return fmt.Errorf("member %s has role owner but team %s is owned by %s", m.UserID, t.ID, t.OwnerID)
			}
		}
	}
	if owners != 1 {
		return fmt.Errorf("team %s has %d owner entries", t.ID, owners)
	}
	return nil
}

// Clone returns a deep copy of t
func (t *Team) Clone() *Team {
	c := *t
	c.Members = append([]Member(nil), t.Members...)
	c.Tags = append([]string{}, t.Tags...)
	return &c
}

// MemberIDs returns the user ids of all members, in order
func (t *Team) MemberIDs() []string {
	ids := make([]string, len(t.Members))
	for i, m := range t.Members {
		ids[i] = m.UserID
	}
	return ids
}

// TeamRepository defines data access for team documents
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	ListByMember(ctx context.Context, userID string) ([]*Team, error)
	Save(ctx context.Context, team *Team) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
