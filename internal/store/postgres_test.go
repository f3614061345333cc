package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS snapshots").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateSnapshot(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(pgxmock.AnyArg(), "sheet", "v1", pgxmock.AnyArg(), pgxmock.AnyArg(), 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	snap, err := st.CreateSnapshot(context.Background(), "sheet", "v1", testColumns, testRows)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.RowCount)
	assert.Equal(t, testColumns, snap.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSnapshot(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots WHERE").
		WithArgs("snap-1").
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "source", "version", "columns", "rows", "row_count", "fetched_at"}).
			AddRow("snap-1", "sheet", "v1",
				[]byte(`["latitude","longitude","pco2"]`),
				[]byte(`[["10.5","120.1","380.2"]]`),
				1, now))

	snap, rows, err := st.GetSnapshot(context.Background(), "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", snap.ID)
	assert.Equal(t, testColumns, snap.Columns)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"10.5", "120.1", "380.2"}, rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestSnapshotEmpty(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots").
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "version", "columns", "rows", "row_count", "fetched_at"}))

	snap, rows, err := st.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListSnapshots(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, source, version, columns, row_count, fetched_at FROM snapshots WHERE source").
		WithArgs("cruise", 100).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "source", "version", "columns", "row_count", "fetched_at"}).
			AddRow("snap-2", "cruise", "v3", []byte(`["latitude","longitude","o2conc"]`), 40, now))

	snaps, err := st.ListSnapshots(context.Background(), SnapshotFilter{Source: "cruise"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "cruise", snaps[0].Source)
	assert.Equal(t, 40, snaps[0].RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteSnapshotsBefore(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM result_cache WHERE snapshot_id IN").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM snapshots WHERE fetched_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := st.DeleteSnapshotsBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResultCache(t *testing.T) {
	st, mock := newMockStore(t)

	key := ResultKey{SnapshotID: "snap-1", Parameter: "pco2", Resolution: 200, Threshold: 400, Padding: 0.05}

	// Miss
	mock.ExpectQuery("SELECT result FROM result_cache").
		WithArgs(key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding).
		WillReturnRows(pgxmock.NewRows([]string{"result"}))

	got, err := st.GetCachedResult(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Write
	mock.ExpectExec("INSERT INTO result_cache").
		WithArgs(pgxmock.AnyArg(), key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding,
			[]byte(`{}`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SetCachedResult(context.Background(), key, []byte(`{}`), time.Hour))

	// Hit
	mock.ExpectQuery("SELECT result FROM result_cache").
		WithArgs(key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow([]byte(`{"parameter":"pco2"}`)))

	got, err = st.GetCachedResult(context.Background(), key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"parameter":"pco2"}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteExpiredResults(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM result_cache WHERE expires_at").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := st.DeleteExpiredResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
