package domain

import (
	"context"
	"math"
	"time"
)

// Action tags an activity log entry
type Action string

const (
	ActionCreateTeam        Action = "CREATE_TEAM"
	ActionAddMember         Action = "ADD_MEMBER"
	ActionRemoveMember      Action = "REMOVE_MEMBER"
	ActionDeleteTeam        Action = "DELETE_TEAM"
	ActionTransferOwnership Action = "TRANSFER_OWNERSHIP"
	ActionPromoteAdmin      Action = "PROMOTE_ADMIN"
	ActionDemoteAdmin       Action = "DEMOTE_ADMIN"
	ActionUpdateSettings    Action = "UPDATE_SETTINGS"
	ActionSendInvite        Action = "SEND_INVITE"
	ActionAcceptInvite      Action = "ACCEPT_INVITE"
	ActionDeclineInvite     Action = "DECLINE_INVITE"
	ActionCancelInvite      Action = "CANCEL_INVITE"
)

// Valid reports whether a is one of the known action tags
func (a Action) Valid() bool {
	switch a {
	case ActionCreateTeam, ActionAddMember, ActionRemoveMember, ActionDeleteTeam,
		ActionTransferOwnership, ActionPromoteAdmin, ActionDemoteAdmin, ActionUpdateSettings,
		ActionSendInvite, ActionAcceptInvite, ActionDeclineInvite, ActionCancelInvite:
		return true
	}
	return false
}

// ActivityEntry is an immutable audit record of a team action
type ActivityEntry struct {
	ID        string         `json:"id"`
	TeamID    string         `json:"team"`
	UserID    string         `json:"user"`
	Action    Action         `json:"action"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ActivityFilter selects a page of a team's activity.
// Zero values of Action, UserID, Start and End disable that filter.
// Start and End are inclusive.
type ActivityFilter struct {
	TeamID string
	Action Action
	UserID string
	Start  time.Time
	End    time.Time
	Page   int
	Limit  int
}

// Offset returns the number of entries skipped before the page
func (f ActivityFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Matches reports whether e satisfies every filter
func (f ActivityFilter) Matches(e *ActivityEntry) bool {
	if e.TeamID != f.TeamID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.Start.IsZero() && e.CreatedAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.CreatedAt.After(f.End) {
		return false
	}
	return true
}

// ActivityRepository is the append-only activity store.
// Query returns one page, newest first, plus the total number of matches.
type ActivityRepository interface {
	Append(ctx context.Context, entry *ActivityEntry) error
	Query(ctx context.Context, filter ActivityFilter) ([]*ActivityEntry, int, error)
}
