package regions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func squarePolygon() *shp.Polygon {
	return &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 34.0, Y: 32.0},
			{X: 34.0, Y: 32.2},
			{X: 34.2, Y: 32.2},
			{X: 34.2, Y: 32.0},
			{X: 34.0, Y: 32.0}, // closed ring
		},
	}
}

func TestEncodeMultiPolygon(t *testing.T) {
	data, err := EncodeMultiPolygon(squarePolygon())
	require.NoError(t, err)
	require.NotNil(t, data)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 4326, mp.SRID())
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestEncodeMultiPolygon_MultiPart(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			{X: 34.0, Y: 32.0},
			{X: 34.0, Y: 32.1},
			{X: 34.1, Y: 32.1},
			{X: 34.1, Y: 32.0},
			{X: 34.0, Y: 32.0},
			{X: 35.0, Y: 33.0},
			{X: 35.0, Y: 33.1},
			{X: 35.1, Y: 33.1},
			{X: 35.1, Y: 33.0},
			{X: 35.0, Y: 33.0},
		},
	}

	data, err := EncodeMultiPolygon(poly)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 2, g.(*geom.MultiPolygon).NumPolygons())
}

func TestEncodeMultiPolygon_Empty(t *testing.T) {
	data, err := EncodeMultiPolygon(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = EncodeMultiPolygon(&shp.Polygon{})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCentroid(t *testing.T) {
	lat, lon := Centroid(squarePolygon())
	assert.InDelta(t, 32.08, lat, 1e-9)
	assert.InDelta(t, 34.08, lon, 1e-9)

	lat, lon = Centroid(nil)
	assert.Equal(t, 0.0, lat)
	assert.Equal(t, 0.0, lon)
}

func TestUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boundary, err := EncodeMultiPolygon(squarePolygon())
	require.NoError(t, err)

	regions := []Region{
		{LamasCode: "5000-611", NameHe: "רמת אביב", Municipality: "תל אביב", CentroidLat: 32.113, CentroidLon: 34.8, Boundary: boundary},
		{LamasCode: "4000-112", NameHe: "הדר", Municipality: "חיפה", CentroidLat: 32.81, CentroidLon: 34.99, Boundary: boundary},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS regions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for _, reg := range regions {
		mock.ExpectExec("INSERT INTO regions").
			WithArgs(reg.LamasCode, reg.NameHe, reg.Municipality, reg.CentroidLat, reg.CentroidLon, reg.Boundary).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, NewLoader(mock).Upsert(context.Background(), regions))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS regions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO regions").
		WillReturnError(assert.AnError)

	err = NewLoader(mock).Upsert(context.Background(), []Region{{LamasCode: "5000-611"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert 5000-611")
}

func TestParseShapefile_MissingFile(t *testing.T) {
	_, _, err := ParseShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}
