package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
)

type capture struct{ entries []*domain.ActivityEntry }

func (c *capture) Publish(e *domain.ActivityEntry) { c.entries = append(c.entries, e) }

func TestRecordStoresAndPublishes(t *testing.T) {
	repo := memory.NewActivityRepository()
	pub := &capture{}
	var buf bytes.Buffer
	rec := NewRecorder(repo, pub, logger.New(&buf, "info"))

	ctx := WithRequestID(context.Background(), "req-1")
	require.NoError(t, rec.Record(ctx, "t1", "u1", domain.ActionCreateTeam, map[string]any{"name": "Eng"}))

	assert.Equal(t, 1, repo.Len())
	require.Len(t, pub.entries, 1)
	assert.Equal(t, domain.ActionCreateTeam, pub.entries[0].Action)
	assert.NotEmpty(t, pub.entries[0].ID)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestRecordReturnsStoreError(t *testing.T) {
	repo := memory.NewActivityRepository()
	repo.FailWith = errors.New("disk full")
	pub := &capture{}
	rec := NewRecorder(repo, pub, logger.Discard())

	err := rec.Record(context.Background(), "t1", "u1", domain.ActionDeleteTeam, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.FailWith)
	assert.Empty(t, pub.entries, "failed entries are not published")
}

func TestRequestIDAbsent(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}
