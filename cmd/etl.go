package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/export"
	"github.com/neighborhood-insights/insights-cli/internal/loader"
	"github.com/neighborhood-insights/insights-cli/internal/model"
	"github.com/neighborhood-insights/insights-cli/internal/pipeline"
	"github.com/neighborhood-insights/insights-cli/internal/scorer"
	"github.com/neighborhood-insights/insights-cli/internal/store"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run ETL stages",
}

var (
	etlNeighborhoodsCSV string
	etlNoStore          bool
)

var etlRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full scoring pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hoods, err := loadNeighborhoods(ctx)
		if err != nil {
			return err
		}

		cal, err := buildCalibration()
		if err != nil {
			return err
		}

		var poiOpts []loader.POIOption
		if cfg.Data.DecodeCP1255 {
			poiOpts = append(poiOpts, loader.WithCP1255())
		}
		src := loader.NewPOISource(cfg.Data.RawDir, poiOpts...)

		var st store.Store
		if !etlNoStore {
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		p := pipeline.New(src, hoods, scorer.New(cal), export.New(cfg.Data.ProcessedDir, cfg.Data.PublicDir), st)
		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("etl run finished",
			zap.Int("neighborhoods", summary.Neighborhoods),
			zap.Int("pois", summary.POIs),
			zap.Any("scored_categories", summary.ScoredCategories),
			zap.Any("skipped_categories", summary.SkippedCategories),
		)
		return nil
	},
}

func loadNeighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	if etlNeighborhoodsCSV == "" {
		return loader.SampleNeighborhoods(), nil
	}
	return loader.LoadNeighborhoodsCSV(ctx, etlNeighborhoodsCSV)
}

// buildCalibration resolves the scorer calibration: an explicit file wins,
// then config overrides, then the built-in table.
func buildCalibration() (scorer.Calibration, error) {
	var cal scorer.Calibration
	switch {
	case cfg.Scoring.CalibrationFile != "":
		loaded, err := scorer.LoadCalibration(cfg.Scoring.CalibrationFile)
		if err != nil {
			return nil, err
		}
		cal = loaded
	case len(cfg.Scoring.MaxDistanceKM) > 0:
		cal = scorer.FromConfig(cfg.Scoring.MaxDistanceKM)
	default:
		cal = scorer.DefaultCalibration()
	}

	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver != "sqlite" {
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Store.Driver)
	}

	st, err := store.NewSQLite(cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func init() {
	etlRunCmd.Flags().StringVar(&etlNeighborhoodsCSV, "neighborhoods", "", "neighborhoods CSV path (default: built-in sample set)")
	etlRunCmd.Flags().BoolVar(&etlNoStore, "no-store", false, "skip run/snapshot persistence")

	etlCmd.AddCommand(etlRunCmd)
	rootCmd.AddCommand(etlCmd)
}
