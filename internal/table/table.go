// Package table holds the raw tabular form of an ingested dataset and the
// validation step that turns its rows into engine-ready samples.
package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Latitude and longitude column names recognized in source headers.
const (
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

// Table is a column-ordered raw dataset: a header row and string cell rows as
// parsed from CSV or XLSX. Cells are kept as strings until validation so a
// malformed cell drops only its row, not the whole ingest.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a Table and its normalized header index.
func New(columns []string, rows [][]string) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.index = make(map[string]int, len(columns))
	for i, c := range columns {
		t.index[NormalizeColumn(c)] = i
	}
	return t
}

// NormalizeColumn folds a header name for matching: NFKC normalization (so
// "pCO₂" and "pCO2" agree), lowercasing, and trimming. Spreadsheet headers
// arrive with typographic subscripts and stray whitespace often enough that
// exact matching loses real columns.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(name)))
}

// ColumnIndex returns the index of the named column, matched after
// normalization. Returns an error naming the column when absent.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[NormalizeColumn(name)]
	if !ok {
		return 0, eris.Errorf("table: no column %q", name)
	}
	return i, nil
}

// HasColumn reports whether the named column exists after normalization.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[NormalizeColumn(name)]
	return ok
}

// parseCell parses a numeric cell. Empty cells and non-numeric text report
// ok=false rather than an error; the validator drops such rows silently.
func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// ParseFloat accepts "NaN" and "Inf" spellings; those are not
		// measurements.
		return 0, false
	}
	return v, true
}
