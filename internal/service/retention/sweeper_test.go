package retention

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

func TestSweep(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	expired := &model.Event{EventType: "product.created", DeleteAt: past}
	kept := &model.Event{EventType: "work.approved", DeleteAt: future}
	require.NoError(t, store.Events().Create(ctx, expired))
	require.NoError(t, store.Events().Create(ctx, kept))

	recipient := uuid.New()
	oldInApp := &model.InAppNotification{EventID: expired.ID, RecipientID: recipient, DeleteAt: past, CreatedAt: past}
	oldEmail := &model.EmailNotification{EventID: expired.ID, RecipientID: recipient, DeleteAt: past, SentAt: past}
	liveInApp := &model.InAppNotification{EventID: kept.ID, RecipientID: recipient, DeleteAt: future, CreatedAt: now}
	require.NoError(t, store.Notifications().CreateInApp(ctx, oldInApp))
	require.NoError(t, store.Notifications().CreateEmail(ctx, oldEmail))
	require.NoError(t, store.Notifications().CreateInApp(ctx, liveInApp))

	s := NewSweeper(store.Notifications(), store.Events(), metrics.NewForTest())
	s.now = func() time.Time { return now }

	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.InAppNotifications)
	assert.EqualValues(t, 1, res.EmailNotifications)
	assert.EqualValues(t, 1, res.Events)
	assert.Equal(t, now, res.Cutoff)

	_, err = store.Events().Get(ctx, expired.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Events().Get(ctx, kept.ID)
	assert.NoError(t, err)
	_, err = store.Notifications().GetInApp(ctx, liveInApp.ID)
	assert.NoError(t, err)

	res, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.InAppNotifications+res.EmailNotifications+res.Events)
}

func TestSweepKeepsEventOwningLiveNotification(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now()

	evt := &model.Event{EventType: "product.created", DeleteAt: now.Add(-time.Minute)}
	require.NoError(t, store.Events().Create(ctx, evt))
	require.NoError(t, store.Notifications().CreateInApp(ctx, &model.InAppNotification{
		EventID: evt.ID, RecipientID: uuid.New(), DeleteAt: now.Add(time.Hour), CreatedAt: now,
	}))

	s := NewSweeper(store.Notifications(), store.Events(), metrics.NewForTest())
	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Events)

	_, err = store.Events().Get(ctx, evt.ID)
	assert.NoError(t, err)
}

func TestSweepWithoutMetrics(t *testing.T) {
	store := memory.NewStore()
	res, err := NewSweeper(store.Notifications(), store.Events(), nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Events)
}
