// Package loader reads raw POI and neighborhood tables into memory for the
// scoring pipeline. A category whose source file is missing or unreadable is
// skipped with a warning; the pipeline carries on with whatever loaded.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/fetcher"
	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// DefaultPOIFiles maps each scored category to its raw GovMap export.
func DefaultPOIFiles() map[model.Category]string {
	return map[model.Category]string{
		model.CategorySchools:       "govmap_schools.csv",
		model.CategoryKindergartens: "govmap_kindergartens.csv",
		model.CategoryClinics:       "govmap_clinics.csv",
		model.CategoryBusStops:      "govmap_bus_stops.csv",
	}
}

// POISource loads category POI tables from a raw data directory.
type POISource struct {
	dir          string
	files        map[model.Category]string
	decodeCP1255 bool
	log          *zap.Logger
}

// POIOption configures a POISource.
type POIOption func(*POISource)

// WithFiles overrides the category→filename table.
func WithFiles(files map[model.Category]string) POIOption {
	return func(s *POISource) {
		s.files = files
	}
}

// WithCP1255 enables Windows-1255 decoding of the source files.
func WithCP1255() POIOption {
	return func(s *POISource) {
		s.decodeCP1255 = true
	}
}

// NewPOISource creates a POISource over the given raw data directory.
func NewPOISource(dir string, opts ...POIOption) *POISource {
	s := &POISource{
		dir:   dir,
		files: DefaultPOIFiles(),
		log:   zap.L().With(zap.String("component", "loader")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every configured category table. Missing files and malformed
// rows are logged and skipped; the returned map contains only categories
// that yielded at least one usable POI.
func (s *POISource) Load(ctx context.Context) (map[model.Category][]model.POI, error) {
	out := make(map[model.Category][]model.POI)

	for _, cat := range s.categories() {
		filename := s.files[cat]
		path := filepath.Join(s.dir, filename)

		pois, err := s.loadFile(ctx, cat, path)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				s.log.Warn("poi file not found, skipping category",
					zap.String("category", string(cat)),
					zap.String("path", path),
				)
				continue
			}
			s.log.Warn("poi file unreadable, skipping category",
				zap.String("category", string(cat)),
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if len(pois) == 0 {
			s.log.Warn("poi file has no usable rows, skipping category",
				zap.String("category", string(cat)),
				zap.String("path", path),
			)
			continue
		}

		s.log.Info("loaded pois",
			zap.String("category", string(cat)),
			zap.Int("count", len(pois)),
		)
		out[cat] = pois
	}

	return out, ctx.Err()
}

func (s *POISource) loadFile(ctx context.Context, cat model.Category, path string) ([]model.POI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{
		HasHeader:    true,
		TrimSpace:    true,
		DecodeCP1255: s.decodeCP1255,
	})
	if err != nil {
		return nil, err
	}

	cols := fetcher.ColumnIndex(header)
	idIdx, okID := cols["id"]
	nameIdx, okName := cols["name_he"]
	latIdx, okLat := cols["latitude"]
	lonIdx, okLon := cols["longitude"]
	if !okLat || !okLon {
		s.log.Warn("poi file missing latitude/longitude columns",
			zap.String("category", string(cat)),
			zap.String("path", path),
		)
		return nil, nil
	}

	var pois []model.POI
	for i, row := range rows {
		poi, ok := s.parseRow(cat, row, i, idIdx, okID, nameIdx, okName, latIdx, lonIdx)
		if !ok {
			continue
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func (s *POISource) parseRow(cat model.Category, row []string, rowNum, idIdx int, okID bool, nameIdx int, okName bool, latIdx, lonIdx int) (model.POI, bool) {
	if latIdx >= len(row) || lonIdx >= len(row) {
		s.log.Warn("poi row too short, skipping",
			zap.String("category", string(cat)),
			zap.Int("row", rowNum),
		)
		return model.POI{}, false
	}

	lat, errLat := strconv.ParseFloat(row[latIdx], 64)
	lon, errLon := strconv.ParseFloat(row[lonIdx], 64)
	if errLat != nil || errLon != nil {
		s.log.Warn("poi row has unparseable coordinates, skipping",
			zap.String("category", string(cat)),
			zap.Int("row", rowNum),
		)
		return model.POI{}, false
	}

	poi := model.POI{
		Category:  cat,
		Latitude:  lat,
		Longitude: lon,
	}
	if okID && idIdx < len(row) {
		if id, err := strconv.ParseInt(row[idIdx], 10, 64); err == nil {
			poi.ID = id
		}
	}
	if okName && nameIdx < len(row) {
		poi.Name = row[nameIdx]
	}

	if err := poi.Validate(); err != nil {
		s.log.Warn("poi row has out-of-range coordinates, skipping",
			zap.String("category", string(cat)),
			zap.Int("row", rowNum),
			zap.Error(err),
		)
		return model.POI{}, false
	}
	if !model.InIsraelBounds(lat, lon) {
		s.log.Debug("poi outside Israel bounds",
			zap.String("category", string(cat)),
			zap.Int64("id", poi.ID),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
	}

	return poi, true
}

// Categories returns the configured categories in stable lexical order.
func (s *POISource) Categories() []model.Category {
	return s.categories()
}

// categories returns configured categories in stable lexical order.
func (s *POISource) categories() []model.Category {
	cats := make([]model.Category, 0, len(s.files))
	for c := range s.files {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
