// Package realtime fans activity entries out to live subscribers of a team.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// subscriberBuffer is how many entries a slow subscriber may lag behind
// before new entries are dropped for it.
const subscriberBuffer = 32

// Subscription receives the entries published for one team
type Subscription struct {
	TeamID string
	C      <-chan *domain.ActivityEntry

	send chan *domain.ActivityEntry
}

// Hub keeps the set of subscribers per team. It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	teams  map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		teams:  make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber for teamID
func (h *Hub) Subscribe(teamID string) *Subscription {
	ch := make(chan *domain.ActivityEntry, subscriberBuffer)
	sub := &Subscription{TeamID: teamID, C: ch, send: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.teams[teamID] == nil {
		h.teams[teamID] = make(map[*Subscription]struct{})
	}
	h.teams[teamID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.teams[sub.TeamID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.teams, sub.TeamID)
	}
}

// Publish hands entry to every subscriber of its team without blocking.
// Subscribers whose buffer is full miss the entry.
func (h *Hub) Publish(entry *domain.ActivityEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.teams[entry.TeamID] {
		select {
		case sub.send <- entry:
		default:
			h.logger.Warn("activity subscriber lagging, entry dropped",
				slog.String("team_id", entry.TeamID),
				slog.String("entry_id", entry.ID),
			)
		}
	}
}

// Subscribers returns the number of subscribers of teamID
func (h *Hub) Subscribers(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[teamID])
}
