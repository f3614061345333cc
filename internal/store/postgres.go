package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/martinbsolomon/philoca/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	version    TEXT NOT NULL,
	columns    JSONB NOT NULL,
	rows       JSONB NOT NULL,
	row_count  INTEGER NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS result_cache (
	id          TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	parameter   TEXT NOT NULL,
	resolution  INTEGER NOT NULL,
	threshold   DOUBLE PRECISION NOT NULL,
	padding     DOUBLE PRECISION NOT NULL,
	result      JSONB NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);
CREATE INDEX IF NOT EXISTS idx_result_cache_key
	ON result_cache(snapshot_id, parameter, resolution, threshold, padding);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSnapshot(ctx context.Context, source, version string, columns []string, rows [][]string) (*model.Snapshot, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal columns")
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal rows")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, source, version, columns, rows, row_count, fetched_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, source, version, columnsJSON, rowsJSON, len(rows), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert snapshot")
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

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, [][]string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots WHERE id = $1`,
		id,
	)
	return scanPGSnapshot(row)
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, [][]string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, version, columns, rows, row_count, fetched_at FROM snapshots
		 ORDER BY fetched_at DESC LIMIT 1`,
	)
	snap, rows, err := scanPGSnapshot(row)
	if err != nil && eris.Is(err, errSnapshotNotFound) {
		return nil, nil, nil
	}
	return snap, rows, err
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, source, version, columns, row_count, fetched_at FROM snapshots`
	var args []any

	if filter.Source != "" {
		query += ` WHERE source = $1`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY fetched_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var columnsJSON []byte
		if err := rows.Scan(&snap.ID, &snap.Source, &snap.Version, &columnsJSON, &snap.RowCount, &snap.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		if err := json.Unmarshal(columnsJSON, &snap.Columns); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal columns")
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots iterate")
	}
	return snaps, nil
}

func (s *PostgresStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM result_cache WHERE snapshot_id IN (SELECT id FROM snapshots WHERE fetched_at < $1)`,
		cutoff.UTC(),
	); err != nil {
		return 0, eris.Wrap(err, "postgres: delete stale results")
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE fetched_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetCachedResult(ctx context.Context, key ResultKey) ([]byte, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT result FROM result_cache
		 WHERE snapshot_id = $1 AND parameter = $2 AND resolution = $3 AND threshold = $4 AND padding = $5
		   AND expires_at > now()
		 ORDER BY computed_at DESC LIMIT 1`,
		key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding,
	)

	var payload []byte
	err := row.Scan(&payload)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached result")
	}
	return payload, nil
}

func (s *PostgresStore) SetCachedResult(ctx context.Context, key ResultKey, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO result_cache (id, snapshot_id, parameter, resolution, threshold, padding, result, computed_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New().String(), key.SnapshotID, key.Parameter, key.Resolution, key.Threshold, key.Padding,
		payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached result")
}

func (s *PostgresStore) DeleteExpiredResults(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM result_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired results")
	}
	return int(tag.RowsAffected()), nil
}

func scanPGSnapshot(row pgx.Row) (*model.Snapshot, [][]string, error) {
	var snap model.Snapshot
	var columnsJSON, rowsJSON []byte

	err := row.Scan(&snap.ID, &snap.Source, &snap.Version, &columnsJSON, &rowsJSON, &snap.RowCount, &snap.FetchedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil, errSnapshotNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: scan snapshot")
	}

	if err := json.Unmarshal(columnsJSON, &snap.Columns); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal columns")
	}
	var rows [][]string
	if err := json.Unmarshal(rowsJSON, &rows); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal rows")
	}
	return &snap, rows, nil
}

