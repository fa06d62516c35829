// Package model defines the core data types shared across the pipeline:
// POIs, neighborhoods, distance results, and enriched output records.
package model

import (
	"github.com/rotisserie/eris"
)

// Category identifies a scored POI service category.
type Category string

// Canonical categories fetched from GovMap layers.
const (
	CategorySchools       Category = "schools"
	CategoryKindergartens Category = "kindergartens"
	CategoryClinics       Category = "clinics"
	CategoryBusStops      Category = "bus_stops"
	CategoryTrainStations Category = "train_stations"
)

// POI is a point of interest loaded from a raw category table.
// Immutable once loaded; coordinates are WGS84 degrees.
type POI struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name_he"`
	Category  Category `json:"category"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
}

// Validate checks that the POI carries usable WGS84 coordinates.
func (p POI) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return eris.Errorf("model: poi %d latitude %f out of range", p.ID, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return eris.Errorf("model: poi %d longitude %f out of range", p.ID, p.Longitude)
	}
	return nil
}

// Israel's approximate bounding box, used to flag suspect coordinates in
// government exports (some rows arrive in a projected CRS by mistake).
const (
	israelMinLat = 29.5
	israelMaxLat = 33.3
	israelMinLon = 34.2
	israelMaxLon = 35.9
)

// InIsraelBounds reports whether a WGS84 coordinate falls roughly within
// Israel. Out-of-bounds rows are logged but still loaded.
func InIsraelBounds(lat, lon float64) bool {
	return lat >= israelMinLat && lat <= israelMaxLat &&
		lon >= israelMinLon && lon <= israelMaxLon
}
