package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// NoEstimate marks grid nodes outside the samples' convex hull. It is NaN so
// arithmetic on it stays poisoned rather than silently becoming zero.
var NoEstimate = math.NaN()

// Field is the interpolated scalar surface evaluated on a Grid. Values is
// row-major: Values[i*n+j] corresponds to (Lats[i], Lons[j]). Nodes outside
// the samples' convex hull hold NoEstimate and serialize as JSON null;
// consumers must treat them as undefined, never as zero.
type Field struct {
	Grid   Grid      `json:"grid"`
	Values []float64 `json:"values"`
}

// At returns the value at grid row i, column j, and whether an estimate is
// defined there.
func (f Field) At(i, j int) (float64, bool) {
	v := f.Values[i*f.Grid.Resolution()+j]
	return v, !math.IsNaN(v)
}

// DefinedCount returns the number of grid nodes carrying an estimate.
func (f Field) DefinedCount() int {
	n := 0
	for _, v := range f.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Range returns the minimum and maximum defined values. ok is false when the
// field is entirely undefined.
func (f Field) Range() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

// MarshalJSON encodes NoEstimate nodes as null. encoding/json rejects NaN,
// and null is what map renderers expect for missing cells.
func (f Field) MarshalJSON() ([]byte, error) {
	gridJSON, err := json.Marshal(f.Grid)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"grid":`)
	buf.Write(gridJSON)
	buf.WriteString(`,"values":[`)
	for i, v := range f.Values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes null values back to NoEstimate.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw struct {
		Grid   Grid       `json:"grid"`
		Values []*float64 `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Grid = raw.Grid
	f.Values = make([]float64, len(raw.Values))
	for i, p := range raw.Values {
		if p == nil {
			f.Values[i] = NoEstimate
		} else {
			f.Values[i] = *p
		}
	}
	return nil
}
