package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// EnrichedNeighborhood is a neighborhood record after the distance join and
// scoring pass. Distances holds one entry per category that had data.
type EnrichedNeighborhood struct {
	Neighborhood
	Distances      map[Category]CategoryProximity
	CompositeScore float64
}

// MarshalJSON emits the flat record shape the map frontend consumes:
// base fields, then "<category>_distance_km" / "nearest_<category>" pairs in
// category order, then composite_score. Key order is fixed so repeated runs
// serialize byte-identically.
func (e EnrichedNeighborhood) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	base := []struct {
		key   string
		value any
	}{
		{"id", e.ID},
		{"name_he", e.NameHe},
		{"name_en", e.NameEn},
		{"city", e.City},
		{"latitude", e.Latitude},
		{"longitude", e.Longitude},
	}
	for _, f := range base {
		if err := writeField(f.key, f.value); err != nil {
			return nil, eris.Wrap(err, "model: marshal enriched neighborhood")
		}
	}

	for _, cat := range SortedCategories(e.Distances) {
		prox := e.Distances[cat]
		if err := writeField(string(cat)+"_distance_km", prox.DistanceKM); err != nil {
			return nil, eris.Wrap(err, "model: marshal enriched neighborhood")
		}
		if err := writeField("nearest_"+string(cat), prox.Nearest); err != nil {
			return nil, eris.Wrap(err, "model: marshal enriched neighborhood")
		}
	}

	if err := writeField("composite_score", e.CompositeScore); err != nil {
		return nil, eris.Wrap(err, "model: marshal enriched neighborhood")
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reverses MarshalJSON, recovering per-category proximity
// entries from their flattened keys.
func (e *EnrichedNeighborhood) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: unmarshal enriched neighborhood")
	}

	fields := map[string]any{
		"id":              &e.ID,
		"name_he":         &e.NameHe,
		"name_en":         &e.NameEn,
		"city":            &e.City,
		"latitude":        &e.Latitude,
		"longitude":       &e.Longitude,
		"composite_score": &e.CompositeScore,
	}
	for key, dst := range fields {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return eris.Wrapf(err, "model: unmarshal %s", key)
		}
	}

	for key, msg := range raw {
		cat, ok := strings.CutSuffix(key, "_distance_km")
		if !ok {
			continue
		}
		var dist float64
		if err := json.Unmarshal(msg, &dist); err != nil {
			return eris.Wrapf(err, "model: unmarshal %s", key)
		}
		var nearest string
		if nm, ok := raw["nearest_"+cat]; ok {
			if err := json.Unmarshal(nm, &nearest); err != nil {
				return eris.Wrapf(err, "model: unmarshal nearest_%s", cat)
			}
		}
		if e.Distances == nil {
			e.Distances = make(map[Category]CategoryProximity)
		}
		e.Distances[Category(cat)] = CategoryProximity{DistanceKM: dist, Nearest: nearest}
	}

	return nil
}

// FormatScore renders a composite score with one decimal, matching the
// exported CSV column.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// FormatDistance renders a distance with two decimals, matching the exported
// CSV columns.
func FormatDistance(km float64) string {
	return strconv.FormatFloat(km, 'f', 2, 64)
}

// SortedCategories returns the map keys in lexical order.
func SortedCategories(m map[Category]CategoryProximity) []Category {
	cats := make([]Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
