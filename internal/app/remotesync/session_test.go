package remotesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/domain"
)

func TestSession_PullsPushesAndLogsOut(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, domain.StatsKey(testUser),
		domain.Document{domain.FieldTotalCompleted: float64(3), domain.FieldPoints: float64(10)}, false))

	s := StartSession(ctx, SessionConfig{
		Store:    store,
		Identity: domain.StaticIdentity(testUser),
		Location: time.UTC,
		Debounce: 5 * time.Millisecond,
		Logger:   engagement.DiscardLogger(),
	})
	require.NotEmpty(t, s.ID)
	assert.Equal(t, testUser, s.UserID)
	assert.Equal(t, 3, s.Engine.Stats().TotalCompleted, "session start pulls remote state")

	s.Engine.CheckAndAward(domain.Event{Kind: domain.EventTaskCompleted})
	s.Logout()

	doc, err := store.Get(ctx, domain.StatsKey(testUser))
	require.NoError(t, err)
	total, _ := doc.Int(domain.FieldTotalCompleted)
	assert.EqualValues(t, 4, total, "pending push lands before logout clears state")
	writer, _ := doc.String(domain.FieldWriter)
	assert.Equal(t, s.ID, writer)

	assert.Zero(t, s.Engine.Stats().TotalCompleted)
	assert.Zero(t, s.Engine.Points())
}

func TestSession_WithoutIdentityRunsLocally(t *testing.T) {
	store := newMemStore()
	s := StartSession(context.Background(), SessionConfig{
		Store:    store,
		Location: time.UTC,
		Logger:   engagement.DiscardLogger(),
	})
	defer s.Close()

	s.Engine.CheckAndAward(domain.Event{Kind: domain.EventTaskCompleted})
	assert.True(t, s.Engine.Achievement("first_task").Unlocked)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.sets)
}
