package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/martinbsolomon/philoca/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	version    TEXT NOT NULL,
	columns    TEXT NOT NULL,
	rows       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS result_cache (
	id          TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	parameter   TEXT NOT NULL,
	resolution  INTEGER NOT NULL,
	threshold   REAL NOT NULL,
	padding     REAL NOT NULL,
	result      TEXT NOT NULL,
	computed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);
CREATE INDEX IF NOT EXISTS idx_result_cache_key
	ON result_cache(snapshot_id, parameter, resolution, threshold, padding);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSnapshot(ctx context.Context, source, version string, columns []string, rows [][]string) (*model.Snapshot, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal columns")
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal rows")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, source, version, columns, rows, row_count, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, version, string(columnsJSON), string(rowsJSON), len(rows), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert snapshot")
	}

	return &model.Snapshot{
		ID:        id,
		Source:    source,
		Version:   version,
		RowCount:  len(rows),
		Columns:   columns,
		FetchedAt: now,
	}, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, [][]string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots WHERE id = ?`,
		id,
	)
	return scanSnapshot(row)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, [][]string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots
		 ORDER BY fetched_at DESC LIMIT 1`,
	)
	snap, rows, err := scanSnapshot(row)
	if err != nil && eris.Is(err, errSnapshotNotFound) {
		return nil, nil, nil
	}
	return snap, rows, err
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, source, version, columns, row_count, fetched_at FROM snapshots WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY fetched_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var columnsJSON string
		if err := rows.Scan(&snap.ID, &snap.Source, &snap.Version, &columnsJSON, &snap.RowCount, &snap.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		if err := json.Unmarshal([]byte(columnsJSON), &snap.Columns); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal columns")
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM result_cache WHERE snapshot_id IN (SELECT id FROM snapshots WHERE fetched_at < ?)`,
		cutoff.UTC(),
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete stale results")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE fetched_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete snapshots")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetCachedResult(ctx context.Context, key ResultKey) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM result_cache
		 WHERE snapshot_id = ? AND parameter = ? AND resolution = ? AND threshold = ? AND padding = ?
		   AND expires_at > ?
		 ORDER BY computed_at DESC LIMIT 1`,
		key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding, time.Now().UTC(),
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached result")
	}
	return []byte(payload), nil
}

func (s *SQLiteStore) SetCachedResult(ctx context.Context, key ResultKey, payload []byte, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO result_cache (id, snapshot_id, parameter, resolution, threshold, padding, result, computed_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding,
		string(payload), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached result")
}

func (s *SQLiteStore) DeleteExpiredResults(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM result_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired results")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

var errSnapshotNotFound = eris.New("snapshot not found")

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.Snapshot, [][]string, error) {
	var snap model.Snapshot
	var columnsJSON, rowsJSON string

	err := row.Scan(&snap.ID, &snap.Source, &snap.Version, &columnsJSON, &rowsJSON, &snap.RowCount, &snap.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil, errSnapshotNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	if err := json.Unmarshal([]byte(columnsJSON), &snap.Columns); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal columns")
	}
	var rows [][]string
	if err := json.Unmarshal([]byte(rowsJSON), &rows); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal rows")
	}
	return &snap, rows, nil
}
