package model

import "github.com/rotisserie/eris"

// Neighborhood is a neighborhood centroid. In the sample dataset this is a
// hand-picked point; in production it is the centroid of a CBS statistical
// area polygon. Immutable input to the pipeline.
type Neighborhood struct {
	ID        int64   `json:"id"`
	NameHe    string  `json:"name_he"`
	NameEn    string  `json:"name_en"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the centroid coordinates.
func (n Neighborhood) Validate() error {
	if n.Latitude < -90 || n.Latitude > 90 {
		return eris.Errorf("model: neighborhood %d latitude %f out of range", n.ID, n.Latitude)
	}
	if n.Longitude < -180 || n.Longitude > 180 {
		return eris.Errorf("model: neighborhood %d longitude %f out of range", n.ID, n.Longitude)
	}
	return nil
}

// DistanceResult is the nearest-POI join output for one (neighborhood,
// category) pair. Absent entirely when the category has zero usable POIs.
type DistanceResult struct {
	NeighborhoodID int64    `json:"neighborhood_id"`
	Category       Category `json:"category"`
	DistanceKM     float64  `json:"distance_km"`
	NearestPOI     string   `json:"nearest_poi"`
}

// CategoryProximity is the per-category slice of an enriched record.
type CategoryProximity struct {
	DistanceKM float64 `json:"distance_km"`
	Nearest    string  `json:"nearest"`
}
