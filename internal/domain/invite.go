package domain

import (
	"context"
	"time"
)

// InviteStatus is the lifecycle state of an invite
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteDeclined  InviteStatus = "declined"
	InviteCancelled InviteStatus = "cancelled"
)

// Terminal reports whether s can no longer change
func (s InviteStatus) Terminal() bool {
	return s == InviteAccepted || s == InviteDeclined || s == InviteCancelled
}

// Invite is an offer of team membership addressed to an email
type Invite struct {
	ID        string       `json:"id"`
	TeamID    string       `json:"team"`
	Email     string       `json:"email"`
	InvitedBy string       `json:"invitedBy"`
	Status    InviteStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// InviteRepository defines data access for invites.
// Create fails with ErrDuplicate when a pending invite already exists for the
// same (team, email). UpdateStatus only applies when the stored status equals
// from, and fails with ErrStaleStatus otherwise.
type InviteRepository interface {
	Create(ctx context.Context, invite *Invite) error
	GetByID(ctx context.Context, id string) (*Invite, error)
	FindPending(ctx context.Context, teamID, email string) (*Invite, error)
	ListPendingByTeam(ctx context.Context, teamID string) ([]*Invite, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*Invite, error)
	UpdateStatus(ctx context.Context, id string, from, to InviteStatus) error
	CountPending(ctx context.Context) (int, error)
}
