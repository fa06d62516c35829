// Package regions loads the CBS statistical-area shapefile into a PostGIS
// regions table, keyed on the CBS (Lamas) area code.
package regions

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of pgxpool.Pool the loader needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Candidate attribute names for the CBS shapefile, which has shipped under
// several column spellings across releases.
var (
	candidateCodeFields = []string{"stat11", "stat_2022", "stat_code", "code", "oid_1"}
	candidateNameFields = []string{"shem_yishuv", "neighborhood", "shem_ezor", "name"}
	candidateMuniFields = []string{"muni_heb", "muni_name", "yishuv", "city"}
)

const createRegionsTable = `
CREATE TABLE IF NOT EXISTS regions (
	lamas_code   TEXT PRIMARY KEY,
	name_he      TEXT,
	municipality TEXT,
	centroid_lat DOUBLE PRECISION,
	centroid_lon DOUBLE PRECISION,
	boundary     GEOMETRY(MultiPolygon, 4326)
)`

const upsertRegion = `
INSERT INTO regions (lamas_code, name_he, municipality, centroid_lat, centroid_lon, boundary)
VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6))
ON CONFLICT (lamas_code) DO UPDATE SET
	name_he      = excluded.name_he,
	municipality = excluded.municipality,
	centroid_lat = excluded.centroid_lat,
	centroid_lon = excluded.centroid_lon,
	boundary     = excluded.boundary`

// Region is one statistical area parsed from the shapefile.
type Region struct {
	LamasCode    string
	NameHe       string
	Municipality string
	CentroidLat  float64
	CentroidLon  float64
	Boundary     []byte // EWKB MultiPolygon, SRID 4326
}

// Loader reads the shapefile and upserts regions.
type Loader struct {
	pool Pool
	log  *zap.Logger
}

// NewLoader creates a Loader over the given pool.
func NewLoader(pool Pool) *Loader {
	return &Loader{
		pool: pool,
		log:  zap.L().With(zap.String("component", "regions")),
	}
}

// Load parses the shapefile at shpPath and upserts every region. Records
// without a code or polygon are skipped with a counter, not an error.
func (l *Loader) Load(ctx context.Context, shpPath string) (int, error) {
	regions, skipped, err := ParseShapefile(shpPath)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		l.log.Warn("skipped shapefile records", zap.Int("skipped", skipped))
	}

	if err := l.Upsert(ctx, regions); err != nil {
		return 0, err
	}

	l.log.Info("regions loaded", zap.Int("regions", len(regions)), zap.Int("skipped", skipped))
	return len(regions), nil
}

// Upsert creates the regions table if needed and upserts every record.
func (l *Loader) Upsert(ctx context.Context, regions []Region) error {
	if _, err := l.pool.Exec(ctx, createRegionsTable); err != nil {
		return eris.Wrap(err, "regions: create table")
	}

	for _, reg := range regions {
		_, err := l.pool.Exec(ctx, upsertRegion,
			reg.LamasCode, reg.NameHe, reg.Municipality,
			reg.CentroidLat, reg.CentroidLon, reg.Boundary,
		)
		if err != nil {
			return eris.Wrapf(err, "regions: upsert %s", reg.LamasCode)
		}
	}
	return nil
}

// ParseShapefile reads the CBS shapefile into Region records. Returns the
// regions and the count of records skipped for missing code or geometry.
func ParseShapefile(shpPath string) ([]Region, int, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "regions: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(candidates []string) func() string {
		idx := -1
		for _, c := range candidates {
			if i, ok := fieldIdx[c]; ok {
				idx = i
				break
			}
		}
		return func() string {
			if idx < 0 {
				return ""
			}
			return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
		}
	}
	codeAttr := attr(candidateCodeFields)
	nameAttr := attr(candidateNameFields)
	muniAttr := attr(candidateMuniFields)

	var regions []Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		code := codeAttr()
		poly, ok := shape.(*shp.Polygon)
		if code == "" || !ok {
			skipped++
			continue
		}

		ewkbData, err := EncodeMultiPolygon(poly)
		if err != nil || ewkbData == nil {
			skipped++
			continue
		}

		lat, lon := Centroid(poly)
		regions = append(regions, Region{
			LamasCode:    code,
			NameHe:       nameAttr(),
			Municipality: muniAttr(),
			CentroidLat:  lat,
			CentroidLon:  lon,
			Boundary:     ewkbData,
		})
	}

	return regions, skipped, nil
}

// Centroid returns the vertex-average centroid of a polygon. Good enough for
// labeling and distance seeding; not an area-weighted centroid.
func Centroid(p *shp.Polygon) (lat, lon float64) {
	if p == nil || len(p.Points) == 0 {
		return 0, 0
	}
	var sumX, sumY float64
	for _, pt := range p.Points {
		sumX += pt.X
		sumY += pt.Y
	}
	n := float64(len(p.Points))
	return sumY / n, sumX / n
}
