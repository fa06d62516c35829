package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/regions"
)

var regionsShapefile string

var etlRegionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Load the CBS statistical-areas shapefile into PostGIS",
	RunE: func(cmd *cobra.Command, args []string) error {
		if regionsShapefile == "" {
			return eris.New("regions: --shapefile is required")
		}
		if cfg.Regions.DatabaseURL == "" {
			return eris.New("regions: regions.database_url is not configured")
		}

		ctx := cmd.Context()
		pool, err := pgxpool.New(ctx, cfg.Regions.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "regions: connect")
		}
		defer pool.Close()

		n, err := regions.NewLoader(pool).Load(ctx, regionsShapefile)
		if err != nil {
			return err
		}
		zap.L().Info("regions load finished", zap.Int("regions", n))
		return nil
	},
}

func init() {
	etlRegionsCmd.Flags().StringVar(&regionsShapefile, "shapefile", "", "path to the CBS .shp file")

	etlCmd.AddCommand(etlRegionsCmd)
}
