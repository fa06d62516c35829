package loader

import (
	"context"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/fetcher"
	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// SampleNeighborhoods returns the built-in centroid set covering major
// Israeli cities. Production deployments replace this with CBS statistical
// area centroids (see internal/regions); the sample keeps the pipeline
// runnable without the full CBS dataset.
func SampleNeighborhoods() []model.Neighborhood {
	return []model.Neighborhood{
		{ID: 1, NameHe: "רמת אביב", NameEn: "Ramat Aviv", City: "תל אביב", Latitude: 32.113, Longitude: 34.800},
		{ID: 2, NameHe: "גבעתיים", NameEn: "Givatayim", City: "גבעתיים", Latitude: 32.073, Longitude: 34.811},
		{ID: 3, NameHe: "רחביה", NameEn: "Rehavia", City: "ירושלים", Latitude: 31.771, Longitude: 35.214},
		{ID: 4, NameHe: "כרמל", NameEn: "Carmel", City: "חיפה", Latitude: 32.794, Longitude: 34.989},
		{ID: 5, NameHe: "נווה שאנן", NameEn: "Neve Sha'anan", City: "תל אביב", Latitude: 32.058, Longitude: 34.764},
		{ID: 6, NameHe: "בקעה", NameEn: "Baka", City: "ירושלים", Latitude: 31.756, Longitude: 35.206},
		{ID: 7, NameHe: "הדר", NameEn: "Hadar", City: "חיפה", Latitude: 32.810, Longitude: 34.994},
		{ID: 8, NameHe: "פלורנטין", NameEn: "Florentin", City: "תל אביב", Latitude: 32.051, Longitude: 34.768},
		{ID: 9, NameHe: "טלביה", NameEn: "Talbieh", City: "ירושלים", Latitude: 31.770, Longitude: 35.225},
		{ID: 10, NameHe: "עיר ימים", NameEn: "Ir Yamim", City: "נתניה", Latitude: 32.327, Longitude: 34.857},
	}
}

// LoadNeighborhoodsCSV reads a neighborhood centroid table with columns
// id, name_he, name_en, city, latitude, longitude. Rows with unparseable
// ids or coordinates are skipped with a warning.
func LoadNeighborhoodsCSV(ctx context.Context, path string) ([]model.Neighborhood, error) {
	log := zap.L().With(zap.String("component", "loader"))

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open neighborhoods %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "loader: read neighborhoods")
	}

	cols := fetcher.ColumnIndex(header)
	required := []string{"id", "name_he", "latitude", "longitude"}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, eris.Errorf("loader: neighborhoods file missing column %q", name)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var hoods []model.Neighborhood
	for i, row := range rows {
		id, errID := strconv.ParseInt(cell(row, "id"), 10, 64)
		lat, errLat := strconv.ParseFloat(cell(row, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(cell(row, "longitude"), 64)
		if errID != nil || errLat != nil || errLon != nil {
			log.Warn("neighborhood row unparseable, skipping", zap.Int("row", i))
			continue
		}

		n := model.Neighborhood{
			ID:        id,
			NameHe:    cell(row, "name_he"),
			NameEn:    cell(row, "name_en"),
			City:      cell(row, "city"),
			Latitude:  lat,
			Longitude: lon,
		}
		if err := n.Validate(); err != nil {
			log.Warn("neighborhood row out of range, skipping", zap.Int("row", i), zap.Error(err))
			continue
		}
		hoods = append(hoods, n)
	}

	if len(hoods) == 0 {
		return nil, eris.Errorf("loader: no usable neighborhoods in %s", path)
	}
	return hoods, nil
}
