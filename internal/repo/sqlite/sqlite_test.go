package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/repo/sqlite"
)

func newTestDB(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_Record(t *testing.T) {
	db := newTestDB(t)

	rec := &domain.AlertRecord{Body: "A: 7 dates", Locations: 1, Delivered: true}
	require.NoError(t, db.Record(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.SentAt.IsZero())
}

func TestStore_RecentNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, db.Record(ctx, &domain.AlertRecord{Body: "old", SentAt: base}))
	require.NoError(t, db.Record(ctx, &domain.AlertRecord{
		Body: "new", Locations: 2, Error: "slack: boom", SentAt: base.Add(time.Minute),
	}))

	got, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Body)
	assert.Equal(t, 2, got[0].Locations)
	assert.False(t, got[0].Delivered)
	assert.Equal(t, "slack: boom", got[0].Error)
	assert.True(t, got[0].SentAt.Equal(base.Add(time.Minute)))
	assert.Equal(t, "old", got[1].Body)

	one, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "new", one[0].Body)
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.db")
	ctx := context.Background()

	db, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(ctx, &domain.AlertRecord{Body: "kept"}))
	require.NoError(t, db.Close())

	db, err = sqlite.New(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Body)
}
