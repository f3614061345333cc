package model

import "time"

// Snapshot identifies one ingested copy of the source table. Each ingest
// produces a new snapshot; computations always name the snapshot they read so
// repeated requests against the same data are cacheable by version key.
type Snapshot struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	RowCount  int       `json:"row_count"`
	Columns   []string  `json:"columns"`
	FetchedAt time.Time `json:"fetched_at"`
}
