// Package model defines the core data types shared across the portal:
// samples, grids, interpolated fields, classifications, and snapshots.
package model

import "math"

// Sample is a single geotagged measurement of one parameter.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     float64 `json:"value"`
}

// Valid reports whether the sample has in-range coordinates and a finite value.
func (s Sample) Valid() bool {
	if s.Latitude < -90 || s.Latitude > 90 {
		return false
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return false
	}
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// SampleSet is an ordered collection of validated samples for one parameter.
// Order is irrelevant to all computations; duplicates are permitted. A
// SampleSet is built once per request and treated as immutable afterwards.
type SampleSet struct {
	Parameter string   `json:"parameter"`
	Samples   []Sample `json:"samples"`
}

// Len returns the number of samples in the set.
func (ss SampleSet) Len() int {
	return len(ss.Samples)
}

// Values returns the measurement values in sample order.
func (ss SampleSet) Values() []float64 {
	vals := make([]float64, len(ss.Samples))
	for i, s := range ss.Samples {
		vals[i] = s.Value
	}
	return vals
}

// BoundingBox is a padded geographic extent derived from a SampleSet.
type BoundingBox struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// LatSpan returns the latitude extent of the box.
func (b BoundingBox) LatSpan() float64 { return b.LatMax - b.LatMin }

// LonSpan returns the longitude extent of the box.
func (b BoundingBox) LonSpan() float64 { return b.LonMax - b.LonMin }

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// Grid is a regular n×n lattice of evaluation coordinates spanning a padded
// bounding box. Latitude and longitude axes are spaced independently, so grid
// cells need not be square in degrees. A Grid is owned by one interpolation
// request and never shared.
type Grid struct {
	Bounds BoundingBox `json:"bounds"`
	Lats   []float64   `json:"lats"`
	Lons   []float64   `json:"lons"`
}

// Resolution returns the number of nodes along one axis.
func (g Grid) Resolution() int { return len(g.Lats) }

// Classification partitions a SampleSet by comparison to a threshold.
// Above holds samples with value strictly greater than the threshold; Below
// holds the rest, including samples exactly at the threshold. The partition
// is total and disjoint.
type Classification struct {
	Threshold float64  `json:"threshold"`
	Above     []Sample `json:"above"`
	Below     []Sample `json:"below"`
}

// Summary holds descriptive statistics for one parameter's validated samples.
// Standard deviation is the sample (Bessel-corrected) form. Above/Below
// counts and fractions are populated when a threshold classification was
// supplied alongside.
type Summary struct {
	Parameter     string  `json:"parameter"`
	Mean          float64 `json:"mean"`
	Median        float64 `json:"median"`
	StdDev        float64 `json:"std_dev"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Count         int     `json:"count"`
	AboveCount    int     `json:"above_count"`
	BelowCount    int     `json:"below_count"`
	AboveFraction float64 `json:"above_fraction"`
	BelowFraction float64 `json:"below_fraction"`
}
