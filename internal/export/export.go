// Package export serializes pipeline results into the map-ready artifacts
// the frontend consumes: an enriched CSV, a JSON record array, and GeoJSON
// point collections for POIs and neighborhoods.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// Output artifact filenames.
const (
	NeighborhoodsCSV     = "neighborhoods_with_distances.csv"
	NeighborhoodsJSON    = "neighborhoods.json"
	POIsGeoJSON          = "pois.geojson"
	NeighborhoodsGeoJSON = "neighborhoods.geojson"
)

// Exporter writes pipeline outputs. All artifacts are ordered by id (and
// POIs additionally by category) so re-running on unchanged inputs produces
// byte-identical files.
type Exporter struct {
	processedDir string
	publicDir    string
	log          *zap.Logger
}

// New creates an Exporter writing the CSV into processedDir and the
// frontend artifacts into publicDir.
func New(processedDir, publicDir string) *Exporter {
	return &Exporter{
		processedDir: processedDir,
		publicDir:    publicDir,
		log:          zap.L().With(zap.String("component", "export")),
	}
}

// WriteAll writes every output artifact.
func (e *Exporter) WriteAll(hoods []model.EnrichedNeighborhood, poisByCat map[model.Category][]model.POI) error {
	for _, dir := range []string{e.processedDir, e.publicDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create dir %s", dir)
		}
	}

	if err := e.writeNeighborhoodsCSV(hoods); err != nil {
		return err
	}
	if err := e.writeNeighborhoodsJSON(hoods); err != nil {
		return err
	}
	if err := e.writePOIsGeoJSON(poisByCat); err != nil {
		return err
	}
	if err := e.writeNeighborhoodsGeoJSON(hoods); err != nil {
		return err
	}

	e.log.Info("exports written",
		zap.String("processed_dir", e.processedDir),
		zap.String("public_dir", e.publicDir),
		zap.Int("neighborhoods", len(hoods)),
	)
	return nil
}

// writeNeighborhoodsCSV writes the enriched table. Distance/name columns
// appear only for categories that produced results.
func (e *Exporter) writeNeighborhoodsCSV(hoods []model.EnrichedNeighborhood) error {
	cats := presentCategories(hoods)

	header := []string{"id", "name_he", "name_en", "city", "latitude", "longitude"}
	for _, cat := range cats {
		header = append(header, string(cat)+"_distance_km", "nearest_"+string(cat))
	}
	header = append(header, "composite_score")

	path := filepath.Join(e.processedDir, NeighborhoodsCSV)
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	for _, h := range sortedByID(hoods) {
		row := []string{
			strconv.FormatInt(h.ID, 10),
			h.NameHe,
			h.NameEn,
			h.City,
			formatCoord(h.Latitude),
			formatCoord(h.Longitude),
		}
		for _, cat := range cats {
			if prox, ok := h.Distances[cat]; ok {
				row = append(row, model.FormatDistance(prox.DistanceKM), prox.Nearest)
			} else {
				row = append(row, "", "")
			}
		}
		row = append(row, model.FormatScore(h.CompositeScore))

		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

func (e *Exporter) writeNeighborhoodsJSON(hoods []model.EnrichedNeighborhood) error {
	data, err := json.MarshalIndent(sortedByID(hoods), "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal neighborhoods")
	}
	return e.writeFile(filepath.Join(e.publicDir, NeighborhoodsJSON), data)
}

func (e *Exporter) writePOIsGeoJSON(poisByCat map[model.Category][]model.POI) error {
	cats := make([]model.Category, 0, len(poisByCat))
	for c := range poisByCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	fc := geojson.NewFeatureCollection()
	for _, cat := range cats {
		pois := append([]model.POI(nil), poisByCat[cat]...)
		sort.Slice(pois, func(i, j int) bool { return pois[i].ID < pois[j].ID })

		for _, p := range pois {
			f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
			f.Properties = geojson.Properties{
				"id":      p.ID,
				"name_he": p.Name,
				"type":    string(p.Category),
			}
			fc.Append(f)
		}
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal pois geojson")
	}
	return e.writeFile(filepath.Join(e.publicDir, POIsGeoJSON), data)
}

func (e *Exporter) writeNeighborhoodsGeoJSON(hoods []model.EnrichedNeighborhood) error {
	fc := geojson.NewFeatureCollection()
	for _, h := range sortedByID(hoods) {
		f := geojson.NewFeature(orb.Point{h.Longitude, h.Latitude})
		f.Properties = geojson.Properties{
			"id":              h.ID,
			"name_he":         h.NameHe,
			"name_en":         h.NameEn,
			"city":            h.City,
			"composite_score": h.CompositeScore,
		}
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal neighborhoods geojson")
	}
	return e.writeFile(filepath.Join(e.publicDir, NeighborhoodsGeoJSON), data)
}

func (e *Exporter) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// presentCategories returns the sorted union of categories that produced a
// distance for at least one neighborhood.
func presentCategories(hoods []model.EnrichedNeighborhood) []model.Category {
	seen := make(map[model.Category]bool)
	for _, h := range hoods {
		for c := range h.Distances {
			seen[c] = true
		}
	}
	cats := make([]model.Category, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

func sortedByID(hoods []model.EnrichedNeighborhood) []model.EnrichedNeighborhood {
	out := append([]model.EnrichedNeighborhood(nil), hoods...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
