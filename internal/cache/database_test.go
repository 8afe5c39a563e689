package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/database/testutil"
)

func newTestDatabaseStore(t *testing.T) (*DatabaseStore, *time.Time) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestDatabaseStoreIncrementFixedWindow(t *testing.T) {
	store, now := newTestDatabaseStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rl:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)

	*now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rl:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, 40*time.Second, ttl)

	*now = now.Add(41 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rl:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, ttl)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store, now := newTestDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))
	require.NoError(t, store.Set(ctx, "greeting", []byte("hi"), time.Minute))

	value, ok, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hi"), value)

	*now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "sticky", []byte("1"), 0))
	require.NoError(t, store.Delete(ctx, "sticky"))
	_, ok, err = store.Get(ctx, "sticky")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store, now := newTestDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "long", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("1"), 0))

	*now = now.Add(time.Minute)
	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	require.NoError(t, store.Ping(ctx))
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	_, _, err := store.IncrementWithTTL(context.Background(), "k", time.Second)
	require.Error(t, err)
}
