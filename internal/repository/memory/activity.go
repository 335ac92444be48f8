package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// ActivityRepository implements domain.ActivityRepository in memory.
// Entries are kept in append order.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries []domain.ActivityEntry

	// FailWith, when set, makes Append fail; used to exercise the
	// best-effort activity policy.
	FailWith error
}

// NewActivityRepository creates an empty activity log
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Append(_ context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	e := *entry
	e.Details = copyDetails(entry.Details)
	r.entries = append(r.entries, e)
	return nil
}

// Query walks the log backwards so results come out newest first. Entries
// with equal timestamps keep reverse append order.
func (r *ActivityRepository) Query(_ context.Context, filter domain.ActivityFilter) ([]*domain.ActivityEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.ActivityEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.Matches(&r.entries[i]) {
			e := r.entries[i]
			e.Details = copyDetails(e.Details)
			matched = append(matched, &e)
		}
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := filter.Offset()
	if start >= total {
		return []*domain.ActivityEntry{}, total, nil
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

// Len returns the number of stored entries
func (r *ActivityRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func sortNewestFirst(entries []*domain.ActivityEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func copyDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
