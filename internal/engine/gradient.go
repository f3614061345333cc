package engine

import (
	"github.com/fogleman/delaunay"
	"gonum.org/v1/gonum/mat"
)

// estimateGradients fits a gradient at every triangulation vertex by weighted
// least squares over its triangulation neighbors: minimize
// Σ w_j (g·d_j − Δf_j)² with w_j = 1/|d_j|², so near neighbors dominate.
// Vertices whose neighborhoods are rank-deficient get a zero gradient, which
// degrades the local patch toward linear without breaking interpolation.
func estimateGradients(tri *delaunay.Triangulation, pts []delaunay.Point, vals []float64) (gx, gy []float64) {
	neighbors := vertexNeighbors(tri, len(pts))
	gx = make([]float64, len(pts))
	gy = make([]float64, len(pts))

	for i := range pts {
		var sxx, sxy, syy, sxf, syf float64
		for _, j := range neighbors[i] {
			dx := pts[j].X - pts[i].X
			dy := pts[j].Y - pts[i].Y
			d2 := dx*dx + dy*dy
			if d2 == 0 {
				continue
			}
			w := 1 / d2
			df := vals[j] - vals[i]
			sxx += w * dx * dx
			sxy += w * dx * dy
			syy += w * dy * dy
			sxf += w * dx * df
			syf += w * dy * df
		}

		a := mat.NewDense(2, 2, []float64{sxx, sxy, sxy, syy})
		rhs := mat.NewVecDense(2, []float64{sxf, syf})
		var g mat.VecDense
		if err := g.SolveVec(a, rhs); err != nil {
			continue
		}
		gx[i] = g.AtVec(0)
		gy[i] = g.AtVec(1)
	}
	return gx, gy
}

// vertexNeighbors builds the adjacency lists of the triangulation. Each
// directed edge contributes its endpoint to the origin's list; duplicates
// from shared triangles are filtered with a seen-set per vertex.
func vertexNeighbors(tri *delaunay.Triangulation, n int) [][]int {
	neighbors := make([][]int, n)
	seen := make(map[[2]int]struct{}, len(tri.Triangles))

	add := func(a, b int) {
		k := [2]int{a, b}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		neighbors[a] = append(neighbors[a], b)
	}

	for t := 0; t < len(tri.Triangles); t += 3 {
		a, b, c := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		add(a, b)
		add(b, a)
		add(b, c)
		add(c, b)
		add(c, a)
		add(a, c)
	}
	return neighbors
}
