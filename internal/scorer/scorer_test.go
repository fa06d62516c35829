package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

func TestRawScore(t *testing.T) {
	s := New(DefaultCalibration())

	tests := []struct {
		name string
		cat  model.Category
		dist float64
		want float64
		ok   bool
	}{
		{"school at zero distance", model.CategorySchools, 0, 100, true},
		{"school at half max", model.CategorySchools, 1.0, 50, true},
		{"school at max", model.CategorySchools, 2.0, 0, true},
		{"school beyond max clamps", model.CategorySchools, 10, 0, true},
		{"clinic 1.11km", model.CategoryClinics, 1.11, 63, true},
		{"bus stop half max", model.CategoryBusStops, 0.25, 50, true},
		{"uncalibrated category", model.CategoryTrainStations, 0.5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.RawScore(tt.cat, tt.dist)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 0.5)
			}
		})
	}
}

// A school at the centroid (sub-score 100) and a clinic 1.11 km away
// (sub-score 63) average to 81.5.
func TestComposite(t *testing.T) {
	s := New(DefaultCalibration())

	results := []model.DistanceResult{
		{NeighborhoodID: 1, Category: model.CategorySchools, DistanceKM: 0},
		{NeighborhoodID: 1, Category: model.CategoryClinics, DistanceKM: 1.11},
	}
	assert.Equal(t, 81.5, s.Composite(1, results))
}

func TestComposite_NoScorableCategories(t *testing.T) {
	s := New(DefaultCalibration())
	assert.Equal(t, 0.0, s.Composite(1, nil))

	// Present but uncalibrated categories do not count either.
	results := []model.DistanceResult{
		{NeighborhoodID: 1, Category: model.CategoryTrainStations, DistanceKM: 0.5},
	}
	assert.Equal(t, 0.0, s.Composite(1, results))
}

func TestComposite_Monotonic(t *testing.T) {
	s := New(DefaultCalibration())

	score := func(d float64) float64 {
		return s.Composite(1, []model.DistanceResult{
			{NeighborhoodID: 1, Category: model.CategorySchools, DistanceKM: d},
		})
	}

	prev := score(0)
	assert.Equal(t, 100.0, prev)
	for _, d := range []float64{0.2, 0.5, 1.0, 1.5, 2.0, 3.0} {
		cur := score(d)
		assert.LessOrEqual(t, cur, prev, "score must not increase with distance")
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestEnrich(t *testing.T) {
	s := New(DefaultCalibration())

	hoods := []model.Neighborhood{
		{ID: 1, NameHe: "רמת אביב", City: "תל אביב", Latitude: 32.113, Longitude: 34.8},
		{ID: 2, NameHe: "ללא נתונים", City: "תל אביב", Latitude: 32.06, Longitude: 34.77},
	}
	results := []model.DistanceResult{
		{NeighborhoodID: 1, Category: model.CategorySchools, DistanceKM: 0, NearestPOI: "אליאנס"},
		{NeighborhoodID: 1, Category: model.CategoryClinics, DistanceKM: 1.11, NearestPOI: "כללית"},
	}

	enriched := s.Enrich(hoods, results)
	require.Len(t, enriched, 2)

	assert.Equal(t, 81.5, enriched[0].CompositeScore)
	assert.Len(t, enriched[0].Distances, 2)
	assert.Equal(t, "אליאנס", enriched[0].Distances[model.CategorySchools].Nearest)

	// Neighborhood with no distance results gets an explicit zero score.
	assert.Equal(t, 0.0, enriched[1].CompositeScore)
	assert.Empty(t, enriched[1].Distances)
}

func TestCalibrationValidate(t *testing.T) {
	assert.NoError(t, DefaultCalibration().Validate())
	assert.Error(t, Calibration{}.Validate())
	assert.Error(t, Calibration{model.CategorySchools: 0}.Validate())
	assert.Error(t, Calibration{model.CategorySchools: -1}.Validate())
}

func TestFromConfig(t *testing.T) {
	cal := FromConfig(map[string]float64{"schools": 3.0, "parks": 1.5})
	assert.Equal(t, 3.0, cal[model.CategorySchools])
	assert.Equal(t, 1.5, cal[model.Category("parks")])
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schools: 2.5\nclinics: 4.0\n"), 0o644))

	cal, err := LoadCalibration(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cal[model.CategorySchools])
	assert.Equal(t, 4.0, cal[model.CategoryClinics])

	_, err = LoadCalibration(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
