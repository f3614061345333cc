package table

import (
	"github.com/martinbsolomon/philoca/internal/model"
)

// MinSamples is the smallest sample count the interpolation engine accepts.
// Piecewise-cubic interpolation over a triangulated point cloud is not
// meaningful below four non-collinear points.
const MinSamples = 4

// InsufficientDataError reports that a parameter has too few valid samples
// for any downstream computation. It is the single fatal condition the
// engine raises; callers must surface it and produce no partial result.
type InsufficientDataError struct {
	Parameter string
	Count     int
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: parameter " + e.Parameter + " has fewer than 4 valid samples"
}

// Validate filters the table down to rows where latitude, longitude, and the
// named parameter are all present, numeric, and in range, and returns them as
// a SampleSet. Failing rows are dropped silently: this is a filter, not a
// validation-error pipeline. Returns InsufficientDataError when fewer than
// MinSamples rows survive, including when the parameter column is missing
// entirely.
func Validate(t *Table, parameter string) (model.SampleSet, error) {
	ss := model.SampleSet{Parameter: parameter}

	latIdx, latErr := t.ColumnIndex(ColumnLatitude)
	lonIdx, lonErr := t.ColumnIndex(ColumnLongitude)
	valIdx, valErr := t.ColumnIndex(parameter)
	if latErr != nil || lonErr != nil || valErr != nil {
		return ss, &InsufficientDataError{Parameter: parameter}
	}

	for _, row := range t.Rows {
		if len(row) <= latIdx || len(row) <= lonIdx || len(row) <= valIdx {
			continue
		}
		lat, ok := parseCell(row[latIdx])
		if !ok {
			continue
		}
		lon, ok := parseCell(row[lonIdx])
		if !ok {
			continue
		}
		val, ok := parseCell(row[valIdx])
		if !ok {
			continue
		}
		s := model.Sample{Latitude: lat, Longitude: lon, Value: val}
		if !s.Valid() {
			continue
		}
		ss.Samples = append(ss.Samples, s)
	}

	if len(ss.Samples) < MinSamples {
		return ss, &InsufficientDataError{Parameter: parameter, Count: len(ss.Samples)}
	}
	return ss, nil
}
