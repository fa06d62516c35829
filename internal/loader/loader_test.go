package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

func writeRaw(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPOISourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "govmap_schools.csv",
		"id,name_he,latitude,longitude\n"+
			"1,אליאנס,32.113,34.800\n"+
			"2,גימנסיה,32.057,34.770\n")
	writeRaw(t, dir, "govmap_clinics.csv",
		"id,name_he,latitude,longitude\n"+
			"10,כללית,32.123,34.800\n")
	// kindergartens and bus_stops files absent on purpose.

	src := NewPOISource(dir)
	got, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.Len(t, got[model.CategorySchools], 2)
	assert.Equal(t, "אליאנס", got[model.CategorySchools][0].Name)
	assert.Equal(t, int64(1), got[model.CategorySchools][0].ID)
	assert.Equal(t, 32.113, got[model.CategorySchools][0].Latitude)
	assert.Equal(t, model.CategorySchools, got[model.CategorySchools][0].Category)
	require.Len(t, got[model.CategoryClinics], 1)
}

func TestPOISourceLoad_SkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "govmap_schools.csv",
		"id,name_he,latitude,longitude\n"+
			"1,תקין,32.113,34.800\n"+
			"2,לא מספר,abc,34.800\n"+
			"3,מחוץ לטווח,95.0,34.800\n"+
			"4,חסר\n")

	src := NewPOISource(dir, WithFiles(map[model.Category]string{
		model.CategorySchools: "govmap_schools.csv",
	}))
	got, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, got[model.CategorySchools], 1)
	assert.Equal(t, "תקין", got[model.CategorySchools][0].Name)
}

func TestPOISourceLoad_EmptyFileSkipsCategory(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "govmap_schools.csv", "id,name_he,latitude,longitude\n")

	src := NewPOISource(dir, WithFiles(map[model.Category]string{
		model.CategorySchools: "govmap_schools.csv",
	}))
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, got, model.CategorySchools)
}

func TestPOISourceLoad_MissingCoordinateColumns(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "govmap_schools.csv", "id,name_he\n1,אליאנס\n")

	src := NewPOISource(dir, WithFiles(map[model.Category]string{
		model.CategorySchools: "govmap_schools.csv",
	}))
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPOISourceLoad_CP1255(t *testing.T) {
	dir := t.TempDir()

	enc := charmap.Windows1255.NewEncoder()
	row, err := enc.String("1,בית ספר,32.113,34.800\n")
	require.NoError(t, err)
	writeRaw(t, dir, "govmap_schools.csv", "id,name_he,latitude,longitude\n"+row)

	src := NewPOISource(dir,
		WithFiles(map[model.Category]string{model.CategorySchools: "govmap_schools.csv"}),
		WithCP1255(),
	)
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got[model.CategorySchools], 1)
	assert.Equal(t, "בית ספר", got[model.CategorySchools][0].Name)
}

func TestCategories_Sorted(t *testing.T) {
	src := NewPOISource(t.TempDir())
	assert.Equal(t, []model.Category{
		model.CategoryBusStops,
		model.CategoryClinics,
		model.CategoryKindergartens,
		model.CategorySchools,
	}, src.Categories())
}

func TestSampleNeighborhoods(t *testing.T) {
	hoods := SampleNeighborhoods()
	require.Len(t, hoods, 10)

	for _, n := range hoods {
		assert.NoError(t, n.Validate())
		assert.True(t, model.InIsraelBounds(n.Latitude, n.Longitude), "sample %s outside Israel", n.NameHe)
		assert.NotEmpty(t, n.NameHe)
	}

	assert.Equal(t, "רמת אביב", hoods[0].NameHe)
	assert.Equal(t, 32.113, hoods[0].Latitude)
	assert.Equal(t, 34.800, hoods[0].Longitude)
}

func TestLoadNeighborhoodsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hoods.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id,name_he,name_en,city,latitude,longitude\n"+
			"1,רמת אביב,Ramat Aviv,תל אביב,32.113,34.800\n"+
			"2,הדר,Hadar,חיפה,32.810,34.990\n"), 0o644))

	hoods, err := LoadNeighborhoodsCSV(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, hoods, 2)
	assert.Equal(t, "Ramat Aviv", hoods[0].NameEn)
	assert.Equal(t, "חיפה", hoods[1].City)
}

func TestLoadNeighborhoodsCSV_MissingFile(t *testing.T) {
	_, err := LoadNeighborhoodsCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
