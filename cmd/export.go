package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/config"
	"github.com/martinbsolomon/philoca/internal/engine"
	"github.com/martinbsolomon/philoca/internal/export"
	"github.com/martinbsolomon/philoca/internal/table"
)

var (
	exportSnapshot   string
	exportParameters []string
	exportXLSX       string
	exportShapeDir   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an XLSX report and shapefiles for stored measurements",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if exportXLSX == "" && exportShapeDir == "" {
			return eris.New("export: pass --xlsx and/or --shapefiles")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, tbl, err := loadSnapshot(ctx, st, exportSnapshot)
		if err != nil {
			return err
		}

		params, err := config.LoadParameters(cfg.Engine.ParametersFile)
		if err != nil {
			return eris.Wrap(err, "load parameters")
		}

		names := exportParameters
		if len(names) == 0 {
			for _, p := range params {
				names = append(names, p.Name)
			}
		}

		var sections []export.ReportSection
		for _, name := range names {
			meta := findParameter(params, name)
			if meta == nil || meta.DefaultThreshold == nil {
				return eris.Errorf("export: no default threshold for %q", name)
			}

			ss, err := table.Validate(tbl, name)
			if err != nil {
				// Parameters without enough usable rows are skipped, not fatal.
				var insufficient *table.InsufficientDataError
				if errors.As(err, &insufficient) {
					zap.L().Warn("skipping parameter",
						zap.String("parameter", name),
						zap.Int("count", insufficient.Count),
					)
					continue
				}
				return eris.Wrapf(err, "export %s", name)
			}

			cls := engine.Classify(ss, *meta.DefaultThreshold)
			sections = append(sections, export.ReportSection{
				Summary:        engine.Summarize(ss, &cls),
				Classification: cls,
			})

			if exportShapeDir != "" {
				path := filepath.Join(exportShapeDir, name+".shp")
				if err := export.WriteShapefile(path, cls); err != nil {
					return eris.Wrapf(err, "export shapefile %s", name)
				}
			}
		}

		if len(sections) == 0 {
			return eris.New("export: no parameter had enough data")
		}

		if exportXLSX != "" {
			if err := export.WriteReport(exportXLSX, sections); err != nil {
				return eris.Wrap(err, "export report")
			}
		}

		zap.L().Info("export complete",
			zap.String("snapshot", snap.ID),
			zap.Int("parameters", len(sections)),
		)
		fmt.Printf("exported %d parameters from snapshot %s\n", len(sections), snap.ID)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSnapshot, "snapshot", "", "snapshot ID (default latest)")
	exportCmd.Flags().StringSliceVar(&exportParameters, "parameters", nil, "parameters to export (default all known)")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "path for the XLSX report")
	exportCmd.Flags().StringVar(&exportShapeDir, "shapefiles", "", "directory for per-parameter shapefiles")
	rootCmd.AddCommand(exportCmd)
}
