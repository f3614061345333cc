package engine

import (
	"github.com/fogleman/delaunay"

	"github.com/martinbsolomon/philoca/internal/model"
)

// Interpolator estimates a scalar field over a grid from irregular samples.
// Implementations must never extrapolate beyond the samples' convex hull and
// must never fail: degenerate inputs yield a Field that is partially or
// entirely model.NoEstimate.
type Interpolator interface {
	Interpolate(ss model.SampleSet, grid model.Grid) model.Field
}

// CloughTocher is the piecewise-cubic interpolator: it Delaunay-triangulates
// the sample coordinates, estimates per-vertex gradients by weighted least
// squares over triangulation neighbors, and evaluates a cubic Bézier surface
// patch per triangle. Values at sample coordinates are reproduced exactly.
type CloughTocher struct{}

// barycentric tolerance for hull-boundary nodes. Nodes numerically on an
// edge or vertex count as inside.
const baryEps = 1e-9

// Interpolate evaluates the cubic surface at every grid node. Nodes outside
// the convex hull, and every node when the samples are collinear or otherwise
// untriangulable, receive model.NoEstimate.
func (CloughTocher) Interpolate(ss model.SampleSet, grid model.Grid) model.Field {
	n := grid.Resolution()
	field := model.Field{Grid: grid, Values: make([]float64, n*n)}
	for i := range field.Values {
		field.Values[i] = model.NoEstimate
	}

	surf := buildSurface(ss)
	if surf == nil {
		return field
	}

	// Grid rows are spatially coherent, so seed each point location with
	// the previously found triangle and walk from there.
	last := 0
	for i, lat := range grid.Lats {
		for j, lon := range grid.Lons {
			t, w0, w1, w2, ok := surf.locate(lon, lat, last)
			if !ok {
				continue
			}
			last = t
			field.Values[i*n+j] = surf.patches[t].eval(w0, w1, w2)
		}
	}
	return field
}

// ConvexHull returns the convex hull of the sample coordinates as a closed
// [lon, lat] ring, counter-clockwise. Returns nil when the samples are too
// few or too degenerate to enclose any area.
func ConvexHull(ss model.SampleSet) [][]float64 {
	surf := buildSurface(ss)
	if surf == nil {
		return nil
	}
	hull := surf.tri.ConvexHull
	if len(hull) < 3 {
		return nil
	}
	ring := make([][]float64, 0, len(hull)+1)
	for _, p := range hull {
		ring = append(ring, []float64{p.X, p.Y})
	}
	ring = append(ring, []float64{hull[0].X, hull[0].Y})
	return ring
}

// surface is a triangulated sample set with one cubic patch per triangle.
type surface struct {
	tri     *delaunay.Triangulation
	pts     []delaunay.Point
	patches []patch
}

// buildSurface collapses duplicate coordinates, triangulates, estimates
// gradients, and precomputes patch coefficients. Returns nil when no
// triangulation exists (fewer than three distinct points, or all collinear).
func buildSurface(ss model.SampleSet) *surface {
	pts, vals := collapseDuplicates(ss)
	if len(pts) < 3 {
		return nil
	}

	tri, err := delaunay.Triangulate(pts)
	if err != nil || len(tri.Triangles) == 0 {
		return nil
	}

	gx, gy := estimateGradients(tri, pts, vals)

	patches := make([]patch, len(tri.Triangles)/3)
	for t := range patches {
		a, b, c := tri.Triangles[3*t], tri.Triangles[3*t+1], tri.Triangles[3*t+2]
		patches[t] = newPatch(
			pts[a], pts[b], pts[c],
			vals[a], vals[b], vals[c],
			[2]float64{gx[a], gy[a]}, [2]float64{gx[b], gy[b]}, [2]float64{gx[c], gy[c]},
		)
	}

	return &surface{tri: tri, pts: pts, patches: patches}
}

// collapseDuplicates merges samples sharing exact coordinates, averaging
// their values. The triangulator cannot hold two vertices at one location,
// and averaging keeps every duplicate's contribution.
func collapseDuplicates(ss model.SampleSet) ([]delaunay.Point, []float64) {
	type key struct{ x, y float64 }
	idx := make(map[key]int, len(ss.Samples))

	var pts []delaunay.Point
	var sums []float64
	var counts []int
	for _, s := range ss.Samples {
		k := key{x: s.Longitude, y: s.Latitude}
		if i, ok := idx[k]; ok {
			sums[i] += s.Value
			counts[i]++
			continue
		}
		idx[k] = len(pts)
		pts = append(pts, delaunay.Point{X: s.Longitude, Y: s.Latitude})
		sums = append(sums, s.Value)
		counts = append(counts, 1)
	}

	vals := make([]float64, len(sums))
	for i := range sums {
		vals[i] = sums[i] / float64(counts[i])
	}
	return pts, vals
}

// locate finds the triangle containing (x, y), walking the triangulation
// from the start triangle by crossing the edge opposite the most negative
// barycentric coordinate. Returns the triangle index and barycentric weights,
// or ok=false when the point is outside the hull.
func (s *surface) locate(x, y float64, start int) (t int, w0, w1, w2 float64, ok bool) {
	t = start
	// A straight-line walk visits each triangle at most once; the cap only
	// guards against numerical cycling on near-degenerate triangles.
	maxSteps := len(s.patches) + 1
	for range maxSteps {
		a := s.tri.Triangles[3*t]
		b := s.tri.Triangles[3*t+1]
		c := s.tri.Triangles[3*t+2]
		w0, w1, w2, ok = barycentric(s.pts[a], s.pts[b], s.pts[c], x, y)
		if !ok {
			// Degenerate triangle: give up on the walk and scan.
			return s.locateScan(x, y)
		}

		minW, minK := w0, 0
		if w1 < minW {
			minW, minK = w1, 1
		}
		if w2 < minW {
			minW, minK = w2, 2
		}
		if minW >= -baryEps {
			return t, w0, w1, w2, true
		}

		// Negative weight for vertex k means the point lies beyond the
		// opposite edge, which is local edge (k+1)%3.
		h := s.tri.Halfedges[3*t+(minK+1)%3]
		if h < 0 {
			return 0, 0, 0, 0, false // crossed the hull boundary
		}
		t = h / 3
	}
	return s.locateScan(x, y)
}

// locateScan is the brute-force fallback for when the walk cannot make
// progress.
func (s *surface) locateScan(x, y float64) (int, float64, float64, float64, bool) {
	for t := range s.patches {
		a := s.tri.Triangles[3*t]
		b := s.tri.Triangles[3*t+1]
		c := s.tri.Triangles[3*t+2]
		w0, w1, w2, ok := barycentric(s.pts[a], s.pts[b], s.pts[c], x, y)
		if ok && w0 >= -baryEps && w1 >= -baryEps && w2 >= -baryEps {
			return t, w0, w1, w2, true
		}
	}
	return 0, 0, 0, 0, false
}

// barycentric computes the barycentric coordinates of (x, y) relative to the
// triangle (p0, p1, p2). ok is false when the triangle has (numerically)
// zero area.
func barycentric(p0, p1, p2 delaunay.Point, x, y float64) (w0, w1, w2 float64, ok bool) {
	det := (p1.Y-p2.Y)*(p0.X-p2.X) + (p2.X-p1.X)*(p0.Y-p2.Y)
	if det == 0 {
		return 0, 0, 0, false
	}
	w0 = ((p1.Y-p2.Y)*(x-p2.X) + (p2.X-p1.X)*(y-p2.Y)) / det
	w1 = ((p2.Y-p0.Y)*(x-p2.X) + (p0.X-p2.X)*(y-p2.Y)) / det
	w2 = 1 - w0 - w1
	return w0, w1, w2, true
}
