// Package store persists ingested table snapshots and caches computed
// results. The engine never touches storage; callers own this layer
// explicitly, keyed by snapshot version with TTL expiry on computed
// results.
package store

import (
	"context"
	"time"

	"github.com/martinbsolomon/philoca/internal/model"
)

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ResultKey identifies one cached computation. Identical keys against the
// same snapshot always produce identical results, which is what makes the
// cache sound.
type ResultKey struct {
	SnapshotID string
	Parameter  string
	Resolution int
	Threshold  float64
	Padding    float64
}

// Store defines the persistence interface for snapshots and result caching.
type Store interface {
	// Snapshots
	CreateSnapshot(ctx context.Context, source, version string, columns []string, rows [][]string) (*model.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, [][]string, error)
	LatestSnapshot(ctx context.Context) (*model.Snapshot, [][]string, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Result cache
	GetCachedResult(ctx context.Context, key ResultKey) ([]byte, error)
	SetCachedResult(ctx context.Context, key ResultKey, payload []byte, ttl time.Duration) error
	DeleteExpiredResults(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
