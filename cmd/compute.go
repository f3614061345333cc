package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/config"
	"github.com/martinbsolomon/philoca/internal/engine"
	"github.com/martinbsolomon/philoca/internal/export"
	"github.com/martinbsolomon/philoca/internal/model"
	"github.com/martinbsolomon/philoca/internal/store"
	"github.com/martinbsolomon/philoca/internal/table"
)

var (
	computeParameter  string
	computeSnapshot   string
	computeResolution int
	computeThreshold  float64
	computePadding    float64
	computeOut        string
	computeGeoJSONDir string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Interpolate and classify one parameter from a stored snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, tbl, err := loadSnapshot(ctx, st, computeSnapshot)
		if err != nil {
			return err
		}

		params, err := config.LoadParameters(cfg.Engine.ParametersFile)
		if err != nil {
			return eris.Wrap(err, "load parameters")
		}

		req := engine.Request{
			Parameter:  computeParameter,
			Resolution: computeResolution,
			Threshold:  computeThreshold,
			Padding:    computePadding,
		}
		if !cmd.Flags().Changed("threshold") {
			meta := findParameter(params, computeParameter)
			if meta == nil || meta.DefaultThreshold == nil {
				return eris.Errorf("compute: no default threshold for %q, pass --threshold", computeParameter)
			}
			req.Threshold = *meta.DefaultThreshold
		}
		if req.Resolution == 0 {
			req.Resolution = cfg.Engine.Resolution
		}
		if req.Padding == 0 {
			req.Padding = cfg.Engine.Padding
		}

		res, err := engine.New(nil).Compute(ctx, tbl, req)
		if err != nil {
			return eris.Wrapf(err, "compute %s", computeParameter)
		}

		if computeGeoJSONDir != "" {
			if err := writeGeoJSON(computeGeoJSONDir, computeParameter, res); err != nil {
				return err
			}
		}

		out := os.Stdout
		if computeOut != "" {
			f, err := os.Create(computeOut)
			if err != nil {
				return eris.Wrapf(err, "compute: create %s", computeOut)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "compute: encode result")
		}

		zap.L().Info("compute complete",
			zap.String("snapshot", snap.ID),
			zap.String("parameter", computeParameter),
			zap.Int("samples", res.Samples.Len()),
			zap.Int("defined", res.Field.DefinedCount()),
		)
		return nil
	},
}

// loadSnapshot fetches the named snapshot, or the latest one when id is
// empty, and rebuilds the parsed table.
func loadSnapshot(ctx context.Context, st store.Store, id string) (*model.Snapshot, *table.Table, error) {
	var (
		snap *model.Snapshot
		rows [][]string
		err  error
	)
	if id == "" {
		snap, rows, err = st.LatestSnapshot(ctx)
	} else {
		snap, rows, err = st.GetSnapshot(ctx, id)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "load snapshot")
	}
	if snap == nil {
		return nil, nil, eris.New("no snapshots stored, run ingest first")
	}
	return snap, table.New(snap.Columns, rows), nil
}

func findParameter(params []model.ParameterMeta, name string) *model.ParameterMeta {
	for i := range params {
		if params[i].Name == name {
			return &params[i]
		}
	}
	return nil
}

func writeGeoJSON(dir, parameter string, res *engine.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "compute: mkdir %s", dir)
	}

	samples, err := export.SamplesGeoJSON(res.Classification, parameter)
	if err != nil {
		return eris.Wrap(err, "compute: samples geojson")
	}
	if err := os.WriteFile(filepath.Join(dir, parameter+"_samples.geojson"), samples, 0o644); err != nil {
		return eris.Wrap(err, "compute: write samples geojson")
	}

	hull, err := export.HullGeoJSON(res.Samples)
	if err != nil {
		return eris.Wrap(err, "compute: hull geojson")
	}
	if err := os.WriteFile(filepath.Join(dir, parameter+"_hull.geojson"), hull, 0o644); err != nil {
		return eris.Wrap(err, "compute: write hull geojson")
	}
	return nil
}

func init() {
	computeCmd.Flags().StringVar(&computeParameter, "parameter", "", "parameter column to compute (required)")
	computeCmd.Flags().StringVar(&computeSnapshot, "snapshot", "", "snapshot ID (default latest)")
	computeCmd.Flags().IntVar(&computeResolution, "resolution", 0, "grid nodes per axis (default from config)")
	computeCmd.Flags().Float64Var(&computeThreshold, "threshold", 0, "classification threshold (default from parameter metadata)")
	computeCmd.Flags().Float64Var(&computePadding, "padding", 0, "bounding box padding fraction (default from config)")
	computeCmd.Flags().StringVar(&computeOut, "out", "", "write result JSON to file instead of stdout")
	computeCmd.Flags().StringVar(&computeGeoJSONDir, "geojson", "", "also write GeoJSON overlays into this directory")
	_ = computeCmd.MarkFlagRequired("parameter")
	rootCmd.AddCommand(computeCmd)
}
