package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/martinbsolomon/philoca/internal/model"
	"github.com/martinbsolomon/philoca/internal/table"
)

// Request names everything one field computation needs. Parameter selects
// the table column; Resolution is the grid node count per axis; Threshold
// splits the classification; Padding is the per-side bounding-box fraction
// (0 means DefaultPadding).
type Request struct {
	Parameter  string
	Resolution int
	Threshold  float64
	Padding    float64
}

// Result is the complete output of one computation. Samples is the validated
// set both branches read; Field and Summary are always derived from it, never
// from raw rows, so the rendered surface and the reported statistics agree.
type Result struct {
	Samples        model.SampleSet      `json:"samples"`
	Bounds         model.BoundingBox    `json:"bounds"`
	Field          model.Field          `json:"field"`
	Classification model.Classification `json:"classification"`
	Summary        model.Summary        `json:"summary"`
}

// Engine runs the full pipeline: validate, then the interpolation branch and
// the classification/statistics branch concurrently over the shared
// read-only sample set.
type Engine struct {
	interp Interpolator
}

// New returns an Engine using the given interpolator, defaulting to
// CloughTocher when nil.
func New(interp Interpolator) *Engine {
	if interp == nil {
		interp = CloughTocher{}
	}
	return &Engine{interp: interp}
}

// Compute validates the table for the requested parameter and produces the
// field, classification, and summary. The only error it returns is
// *table.InsufficientDataError; every geometric or numeric edge case past
// that gate is absorbed into the Field's no-estimate semantics.
func (e *Engine) Compute(ctx context.Context, t *table.Table, req Request) (*Result, error) {
	ss, err := table.Validate(t, req.Parameter)
	if err != nil {
		return nil, err
	}
	if req.Resolution <= 0 {
		req.Resolution = DefaultResolution
	}

	res := &Result{Samples: ss}

	// The branches only read ss, so they are free to run in parallel.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Bounds = BuildBounds(ss, req.Padding)
		grid := BuildGrid(res.Bounds, req.Resolution)
		res.Field = e.interp.Interpolate(ss, grid)
		return nil
	})
	g.Go(func() error {
		res.Classification = Classify(ss, req.Threshold)
		res.Summary = Summarize(ss, &res.Classification)
		return nil
	})
	// Branches never fail; Wait just synchronizes them.
	_ = g.Wait()

	return res, nil
}
