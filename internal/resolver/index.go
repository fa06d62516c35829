// Package resolver performs the nearest-POI spatial join: for every
// neighborhood centroid and every category with data, it finds the closest
// POI and the great-circle distance to it.
package resolver

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// EarthRadiusKM is Earth's mean radius.
const EarthRadiusKM = 6371.0

// pointTolerance is the degenerate-rectangle edge length used to index
// points in the R-tree.
const pointTolerance = 1e-9

// Index is a nearest-neighbor index over one category's POIs.
//
// POIs are embedded on the unit sphere and indexed in 3-D chord space.
// Euclidean chord distance is strictly monotonic in great-circle angle, so
// the chord-space nearest neighbor is the great-circle nearest neighbor; the
// reported kilometers are then recovered exactly via 2·asin(chord/2), which
// is the haversine distance (no flat-earth error, no unit ambiguity).
type Index struct {
	tree *rtreego.Rtree
}

type poiEntry struct {
	poi model.POI
	loc rtreego.Point
}

func (e *poiEntry) Bounds() *rtreego.Rect {
	return e.loc.ToRect(pointTolerance)
}

// NewIndex builds an index over the given POIs.
// Returns an error for an empty set; callers skip such categories entirely.
func NewIndex(pois []model.POI) (*Index, error) {
	if len(pois) == 0 {
		return nil, eris.New("resolver: cannot index empty POI set")
	}

	entries := make([]rtreego.Spatial, 0, len(pois))
	for _, p := range pois {
		entries = append(entries, &poiEntry{poi: p, loc: unitVector(p.Latitude, p.Longitude)})
	}

	return &Index{tree: rtreego.NewTree(3, 25, 50, entries...)}, nil
}

// Nearest returns the closest POI to the given centroid and the great-circle
// distance to it in kilometers (unrounded).
func (ix *Index) Nearest(lat, lon float64) (model.POI, float64) {
	q := unitVector(lat, lon)
	entry := ix.tree.NearestNeighbor(q).(*poiEntry)

	chord := 0.0
	for i := 0; i < 3; i++ {
		d := q[i] - entry.loc[i]
		chord += d * d
	}
	chord = math.Sqrt(chord)

	return entry.poi, chordKM(chord)
}

// Size returns the number of indexed POIs.
func (ix *Index) Size() int {
	return ix.tree.Size()
}

// unitVector maps a WGS84 coordinate to a point on the unit sphere.
func unitVector(lat, lon float64) rtreego.Point {
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	return rtreego.Point{
		math.Cos(latRad) * math.Cos(lonRad),
		math.Cos(latRad) * math.Sin(lonRad),
		math.Sin(latRad),
	}
}

// chordKM converts a unit-sphere chord length to great-circle kilometers.
func chordKM(chord float64) float64 {
	if chord > 2 {
		chord = 2
	}
	return 2 * EarthRadiusKM * math.Asin(chord/2)
}

// HaversineKM computes the great-circle distance between two WGS84 points
// directly from the haversine formula. Used to cross-check the index's
// chord-derived distances.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}
