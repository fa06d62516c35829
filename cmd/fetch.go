package main

import (
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/govmap"
	"github.com/neighborhood-insights/insights-cli/internal/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch raw data from upstream sources",
}

var fetchCategory string

var fetchGovmapCmd = &cobra.Command{
	Use:   "govmap",
	Short: "Download POI layers from the GovMap WFS endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client := govmap.NewClient(cfg.GovMap.BaseURL,
			govmap.WithPageSize(cfg.GovMap.PageSize),
			govmap.WithRateLimit(cfg.GovMap.RequestsPerSecond),
			govmap.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.GovMap.TimeoutSecs) * time.Second}),
		)

		layers := layerMap()
		if fetchCategory != "" {
			layer, ok := layers[model.Category(fetchCategory)]
			if !ok {
				return eris.Errorf("fetch: no layer configured for category %q", fetchCategory)
			}
			layers = map[model.Category]string{model.Category(fetchCategory): layer}
		}

		cats := make([]model.Category, 0, len(layers))
		for cat := range layers {
			cats = append(cats, cat)
		}
		sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

		for _, cat := range cats {
			fc, err := client.FetchLayer(ctx, layers[cat])
			if err != nil {
				return err
			}

			pois := govmap.POIs(fc, cat)
			path := filepath.Join(cfg.Data.RawDir, govmap.RawFilename(cat))
			if err := govmap.WriteCSV(path, pois); err != nil {
				return err
			}
			zap.L().Info("layer written",
				zap.String("category", string(cat)),
				zap.Int("pois", len(pois)),
				zap.String("path", path),
			)
		}
		return nil
	},
}

// layerMap merges configured layer overrides onto the defaults.
func layerMap() map[model.Category]string {
	layers := govmap.DefaultLayers()
	for cat, layer := range cfg.GovMap.Layers {
		layers[model.Category(cat)] = layer
	}
	return layers
}

func init() {
	fetchGovmapCmd.Flags().StringVar(&fetchCategory, "category", "", "fetch a single category instead of all configured layers")

	fetchCmd.AddCommand(fetchGovmapCmd)
	rootCmd.AddCommand(fetchCmd)
}
