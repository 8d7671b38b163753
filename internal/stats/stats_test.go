package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, softLimit int) (*Tracker, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	tr := NewTracker(store, softLimit)
	return tr, store
}

func TestTracker_RecordAndRead(t *testing.T) {
	tr, _ := newTestTracker(t, 200)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Record(ctx))
	}

	snap, err := tr.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.DailyCount)
	assert.Equal(t, 3, snap.TotalCount)
	assert.False(t, snap.LastReset.IsZero())
}

func TestTracker_LazyMidnightReset(t *testing.T) {
	tr, _ := newTestTracker(t, 200)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 23, 50, 0, 0, time.Local)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Record(ctx))
	require.NoError(t, tr.Record(ctx))

	// Cross local midnight; total must survive, daily must not.
	now = time.Date(2025, 3, 11, 0, 5, 0, 0, time.Local)

	snap, err := tr.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.DailyCount)
	assert.Equal(t, 2, snap.TotalCount)
	assert.Equal(t, now, snap.LastReset)

	require.NoError(t, tr.Record(ctx))
	snap, err = tr.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.DailyCount)
	assert.Equal(t, 3, snap.TotalCount)
}

func TestTracker_SameDayNoReset(t *testing.T) {
	tr, _ := newTestTracker(t, 200)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)
	tr.now = func() time.Time { return now }
	require.NoError(t, tr.Record(ctx))

	// Later the same day.
	now = time.Date(2025, 3, 10, 22, 0, 0, 0, time.Local)
	snap, err := tr.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.DailyCount)
}

func TestTracker_OverSoftLimit(t *testing.T) {
	tr, _ := newTestTracker(t, 2)
	ctx := context.Background()

	over, err := tr.OverSoftLimit(ctx)
	require.NoError(t, err)
	assert.False(t, over)

	require.NoError(t, tr.Record(ctx))
	over, err = tr.OverSoftLimit(ctx)
	require.NoError(t, err)
	assert.False(t, over)

	require.NoError(t, tr.Record(ctx))
	over, err = tr.OverSoftLimit(ctx)
	require.NoError(t, err)
	assert.True(t, over, "reaching the limit counts as over")
}

func TestTracker_DisabledLimit(t *testing.T) {
	tr, _ := newTestTracker(t, 0)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		require.NoError(t, tr.Record(ctx))
	}
	over, err := tr.OverSoftLimit(ctx)
	require.NoError(t, err)
	assert.False(t, over)
}

func TestTracker_LoadsPersistedSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := NewTracker(store, 200)
	require.NoError(t, first.Record(ctx))
	require.NoError(t, first.Record(ctx))

	// A fresh tracker over the same store picks up where the first left off.
	second := NewTracker(store, 200)
	snap, err := second.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.DailyCount)
	assert.Equal(t, 2, snap.TotalCount)
}
