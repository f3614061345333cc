package engine

import "github.com/fogleman/delaunay"

// patch is a cubic Bézier triangle over one Delaunay triangle: ten Bernstein
// coefficients determined by the three vertex values and gradients, with the
// interior coefficient chosen for quadratic precision (Farin's construction).
// Corner coefficients equal the vertex values, so the surface reproduces the
// samples exactly.
type patch struct {
	b300, b030, b003 float64
	b210, b201       float64
	b120, b021       float64
	b102, b012       float64
	b111             float64
}

// newPatch builds the patch for triangle (p0, p1, p2) with values f and
// gradients g at each vertex. Edge coefficients come from the directional
// derivative along each edge; the center coefficient lifts the average edge
// coefficient away from the flat interpolant so quadratics are reproduced.
func newPatch(p0, p1, p2 delaunay.Point, f0, f1, f2 float64, g0, g1, g2 [2]float64) patch {
	dot := func(g [2]float64, from, to delaunay.Point) float64 {
		return g[0]*(to.X-from.X) + g[1]*(to.Y-from.Y)
	}

	p := patch{b300: f0, b030: f1, b003: f2}
	p.b210 = f0 + dot(g0, p0, p1)/3
	p.b201 = f0 + dot(g0, p0, p2)/3
	p.b120 = f1 + dot(g1, p1, p0)/3
	p.b021 = f1 + dot(g1, p1, p2)/3
	p.b102 = f2 + dot(g2, p2, p0)/3
	p.b012 = f2 + dot(g2, p2, p1)/3

	e := (p.b210 + p.b201 + p.b120 + p.b021 + p.b102 + p.b012) / 6
	v := (f0 + f1 + f2) / 3
	p.b111 = e + (e-v)/2

	return p
}

// eval computes the surface value at barycentric coordinates (w0, w1, w2).
// Small negative weights from boundary tolerance are clamped so hull-edge
// nodes evaluate on the patch rather than fractionally outside it.
func (p patch) eval(w0, w1, w2 float64) float64 {
	w0, w1, w2 = clampWeights(w0, w1, w2)

	w0sq, w1sq, w2sq := w0*w0, w1*w1, w2*w2
	return p.b300*w0sq*w0 + p.b030*w1sq*w1 + p.b003*w2sq*w2 +
		3*(p.b210*w0sq*w1+p.b201*w0sq*w2+
			p.b120*w1sq*w0+p.b021*w1sq*w2+
			p.b102*w2sq*w0+p.b012*w2sq*w1) +
		6*p.b111*w0*w1*w2
}

func clampWeights(w0, w1, w2 float64) (float64, float64, float64) {
	if w0 >= 0 && w1 >= 0 && w2 >= 0 {
		return w0, w1, w2
	}
	if w0 < 0 {
		w0 = 0
	}
	if w1 < 0 {
		w1 = 0
	}
	if w2 < 0 {
		w2 = 0
	}
	sum := w0 + w1 + w2
	if sum == 0 {
		return 1, 0, 0
	}
	return w0 / sum, w1 / sum, w2 / sum
}
