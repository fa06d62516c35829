package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/fetcher"
	"github.com/neighborhood-insights/insights-cli/pkg/geocode"
)

var (
	geocodeIn        string
	geocodeOut       string
	geocodeStreetCol string
	geocodeCityCol   string
	geocodeSheet     string
)

var etlGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode a listings table through Nominatim",
	Long:  "Reads an XLSX or CSV of addresses and writes a CSV with longitude, latitude and geocode_error columns appended. The output file doubles as the resume cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if geocodeIn == "" {
			return eris.New("geocode: --in is required")
		}
		if geocodeOut == "" {
			base := strings.TrimSuffix(filepath.Base(geocodeIn), filepath.Ext(geocodeIn))
			geocodeOut = filepath.Join(cfg.Data.ProcessedDir, base+"_geocoded.csv")
		}

		header, rows, err := readTable(cmd.Context(), geocodeIn)
		if err != nil {
			return err
		}

		client := geocode.NewClient(
			geocode.WithBaseURL(strings.TrimRight(cfg.Geocode.BaseURL, "/")+"/search"),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithCountry(cfg.Geocode.Country),
			geocode.WithMinInterval(time.Duration(cfg.Geocode.MinIntervalSecs*float64(time.Second))),
		)
		batch := geocode.NewBatch(client, geocode.BatchOptions{
			StreetColumn:    geocodeStreetCol,
			CityColumn:      geocodeCityCol,
			CheckpointEvery: cfg.Geocode.CheckpointEvery,
		})

		n, err := batch.Run(cmd.Context(), header, rows, geocodeOut)
		if err != nil {
			return err
		}
		zap.L().Info("geocoding finished", zap.Int("newly_geocoded", n), zap.String("output", geocodeOut))
		return nil
	},
}

func readTable(ctx context.Context, path string) ([]string, [][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: geocodeSheet})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "geocode: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
}

func init() {
	etlGeocodeCmd.Flags().StringVar(&geocodeIn, "in", "", "input XLSX or CSV of addresses")
	etlGeocodeCmd.Flags().StringVar(&geocodeOut, "out", "", "output CSV path (default: <in>_geocoded.csv under the processed dir)")
	etlGeocodeCmd.Flags().StringVar(&geocodeStreetCol, "street-col", "street", "street column name")
	etlGeocodeCmd.Flags().StringVar(&geocodeCityCol, "city-col", "city", "city column name")
	etlGeocodeCmd.Flags().StringVar(&geocodeSheet, "sheet", "", "XLSX sheet name (default: first sheet)")

	etlCmd.AddCommand(etlGeocodeCmd)
}
