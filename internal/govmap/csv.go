package govmap

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// WriteCSV writes POIs to a raw category CSV with the column layout the
// loader expects. Records are sorted by id so repeated fetches of the same
// data produce identical files.
func WriteCSV(path string, pois []model.POI) error {
	sorted := make([]model.POI, len(pois))
	copy(sorted, pois)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "govmap: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "govmap: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name_he", "latitude", "longitude"}); err != nil {
		return eris.Wrap(err, "govmap: write header")
	}
	for _, p := range sorted {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "govmap: write record")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "govmap: flush %s", path)
	}
	return f.Close()
}

// RawFilename returns the conventional raw CSV name for a category.
func RawFilename(cat model.Category) string {
	return "govmap_" + string(cat) + ".csv"
}
