package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var (
	testColumns = []string{"latitude", "longitude", "pco2"}
	testRows    = [][]string{
		{"10.5", "120.1", "380.2"},
		{"10.6", "120.2", "390.0"},
	}
)

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	snap, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.RowCount)

	got, rows, err := st.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "sheet", got.Source)
	assert.Equal(t, "v1", got.Version)
	assert.Equal(t, testColumns, got.Columns)
	assert.Equal(t, testRows, rows)
}

func TestSQLiteGetSnapshotMissing(t *testing.T) {
	st := newTestStore(t)

	_, _, err := st.GetSnapshot(context.Background(), "no-such-id")
	assert.Error(t, err)
}

func TestSQLiteLatestSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Empty store reports no snapshot without an error.
	snap, rows, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, rows)

	first, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.CreateSnapshot(ctx, "sheet", "v2", testColumns, testRows)
	require.NoError(t, err)

	latest, _, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
}

func TestSQLiteListSnapshots(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)
	_, err = st.CreateSnapshot(ctx, "cruise", "v1", testColumns, testRows)
	require.NoError(t, err)

	all, err := st.ListSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := st.ListSnapshots(ctx, SnapshotFilter{Source: "cruise"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "cruise", filtered[0].Source)

	limited, err := st.ListSnapshots(ctx, SnapshotFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteDeleteSnapshotsBefore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	snap, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)

	// A cached result attached to the snapshot goes with it.
	key := ResultKey{SnapshotID: snap.ID, Parameter: "pco2", Resolution: 50, Threshold: 400, Padding: 0.05}
	require.NoError(t, st.SetCachedResult(ctx, key, []byte(`{}`), time.Hour))

	n, err := st.DeleteSnapshotsBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, _, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	cached, err := st.GetCachedResult(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestSQLiteResultCache(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	snap, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)

	key := ResultKey{SnapshotID: snap.ID, Parameter: "pco2", Resolution: 200, Threshold: 400, Padding: 0.05}

	// Miss before any write.
	got, err := st.GetCachedResult(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	payload := []byte(`{"parameter":"pco2"}`)
	require.NoError(t, st.SetCachedResult(ctx, key, payload, time.Hour))

	got, err = st.GetCachedResult(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// A different threshold is a different key.
	other := key
	other.Threshold = 410
	got, err = st.GetCachedResult(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteResultCacheExpiry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	snap, err := st.CreateSnapshot(ctx, "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)

	key := ResultKey{SnapshotID: snap.ID, Parameter: "pco2", Resolution: 200, Threshold: 400, Padding: 0.05}
	require.NoError(t, st.SetCachedResult(ctx, key, []byte(`{}`), -time.Minute))

	got, err := st.GetCachedResult(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries never hit")

	n, err := st.DeleteExpiredResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
