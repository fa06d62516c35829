// Package scorer folds per-category nearest-POI distances into a single
// bounded neighborhood score.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// Calibration maps a category to the distance (km) at which its sub-score
// reaches zero. Closer is better: distance 0 scores 100, max distance and
// beyond score 0.
type Calibration map[model.Category]float64

// DefaultCalibration returns the production calibration table.
func DefaultCalibration() Calibration {
	return Calibration{
		model.CategorySchools:       2.0,
		model.CategoryKindergartens: 1.0,
		model.CategoryClinics:       3.0,
		model.CategoryBusStops:      0.5,
	}
}

// FromConfig builds a Calibration from a plain string-keyed map (as viper
// delivers it). An empty map yields the default table.
func FromConfig(maxDistanceKM map[string]float64) Calibration {
	if len(maxDistanceKM) == 0 {
		return DefaultCalibration()
	}
	cal := make(Calibration, len(maxDistanceKM))
	for name, dist := range maxDistanceKM {
		cal[model.Category(name)] = dist
	}
	return cal
}

// LoadCalibration reads a YAML calibration file of the form
//
//	schools: 2.0
//	bus_stops: 0.5
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read calibration %s", path)
	}

	var raw map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse calibration %s", path)
	}
	if len(raw) == 0 {
		return nil, eris.Errorf("scorer: calibration file %s is empty", path)
	}

	return FromConfig(raw), nil
}

// Validate checks that every calibration distance is positive.
func (c Calibration) Validate() error {
	var errs []string
	for cat, dist := range c {
		if dist <= 0 {
			errs = append(errs, fmt.Sprintf("%s max distance must be > 0, got %g", cat, dist))
		}
	}
	if len(c) == 0 {
		errs = append(errs, "calibration table is empty")
	}
	if len(errs) > 0 {
		return eris.Errorf("scorer: calibration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
