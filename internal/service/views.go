package service

import (
	"context"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// MemberView is a team member with the user resolved to display fields
type MemberView struct {
	User domain.UserSummary `json:"user"`
	Role domain.Role        `json:"role"`
}

// TeamView is a team with owner and members resolved to display fields
type TeamView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Owner       domain.UserSummary `json:"owner"`
	Members     []MemberView       `json:"members"`
	Description string             `json:"description"`
	Avatar      string             `json:"avatar"`
	Visibility  domain.Visibility  `json:"visibility"`
	Tags        []string           `json:"tags"`
	MyRole      domain.Role        `json:"myRole,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Settings is the editable metadata of a team
type Settings struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Avatar      string            `json:"avatar"`
	Visibility  domain.Visibility `json:"visibility"`
	Tags        []string          `json:"tags"`
}

func settingsOf(t *domain.Team) *Settings {
	return &Settings{
		Name:        t.Name,
		Description: t.Description,
		Avatar:      t.Avatar,
		Visibility:  t.Visibility,
		Tags:        append([]string{}, t.Tags...),
	}
}

// resolveTeams builds views for teams with one user lookup for all of them.
// callerID, when set, fills MyRole.
func resolveTeams(ctx context.Context, users domain.UserRepository, teams []*domain.Team, callerID string) ([]*TeamView, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, t := range teams {
		for _, id := range append(t.MemberIDs(), t.OwnerID) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	byID, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to resolve members", err)
	}
	summary := func(id string) domain.UserSummary {
		if u, ok := byID[id]; ok {
			return u.Summary()
		}
		return domain.UserSummary{ID: id}
	}

	views := make([]*TeamView, 0, len(teams))
	for _, t := range teams {
		v := &TeamView{
			ID:          t.ID,
			Name:        t.Name,
			Owner:       summary(t.OwnerID),
			Members:     make([]MemberView, 0, len(t.Members)),
			Description: t.Description,
			Avatar:      t.Avatar,
			Visibility:  t.Visibility,
			Tags:        append([]string{}, t.Tags...),
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		for _, m := range t.Members {
			v.Members = append(v.Members, MemberView{User: summary(m.UserID), Role: m.Role})
		}
		if m := t.Member(callerID); m != nil {
			v.MyRole = m.Role
		}
		views = append(views, v)
	}
	return views, nil
}

func resolveTeam(ctx context.Context, users domain.UserRepository, team *domain.Team, callerID string) (*TeamView, error) {
	views, err := resolveTeams(ctx, users, []*domain.Team{team}, callerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
