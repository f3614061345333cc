// Package engine implements the scatter-to-grid estimation core: bounding
// box and grid construction, piecewise-cubic scattered interpolation with
// convex-hull masking, threshold classification, and descriptive statistics.
// The engine is pure and request-scoped: it never fetches, stores, or
// renders, and every input is treated as immutable.
package engine

import (
	"math"

	"github.com/martinbsolomon/philoca/internal/model"
)

// DefaultPadding is the fraction of each axis span added on every side of
// the bounding box before gridding.
const DefaultPadding = 0.05

// DefaultResolution is the grid node count per axis when the caller does not
// choose one.
const DefaultResolution = 200

// minAbsolutePadding pads a zero-span axis (all samples on one meridian or
// parallel) so the box keeps a nonzero area. 0.01° is roughly a kilometer at
// the equator, small enough not to distort a real survey extent.
const minAbsolutePadding = 0.01

// BuildBounds computes the padded bounding box of a sample set. padding is
// the per-side fraction of each axis span; a non-positive value falls back
// to DefaultPadding. Axes are padded independently.
func BuildBounds(ss model.SampleSet, padding float64) model.BoundingBox {
	if padding <= 0 {
		padding = DefaultPadding
	}

	latMin, latMax := math.Inf(1), math.Inf(-1)
	lonMin, lonMax := math.Inf(1), math.Inf(-1)
	for _, s := range ss.Samples {
		latMin = math.Min(latMin, s.Latitude)
		latMax = math.Max(latMax, s.Latitude)
		lonMin = math.Min(lonMin, s.Longitude)
		lonMax = math.Max(lonMax, s.Longitude)
	}

	latPad := math.Max((latMax-latMin)*padding, minAbsolutePadding)
	lonPad := math.Max((lonMax-lonMin)*padding, minAbsolutePadding)

	return model.BoundingBox{
		LatMin: latMin - latPad,
		LatMax: latMax + latPad,
		LonMin: lonMin - lonPad,
		LonMax: lonMax + lonPad,
	}
}

// BuildGrid lays an n×n lattice of evaluation coordinates evenly across the
// box, endpoints included. n below 2 is clamped to 2.
func BuildGrid(bounds model.BoundingBox, n int) model.Grid {
	if n < 2 {
		n = 2
	}
	lats := linspace(bounds.LatMin, bounds.LatMax, n)
	lons := linspace(bounds.LonMin, bounds.LonMax, n)
	return model.Grid{Bounds: bounds, Lats: lats, Lons: lons}
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}
