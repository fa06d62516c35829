package scorer

import (
	"math"

	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// Scorer computes composite proximity scores. It is a pure function of its
// inputs; nothing is carried across neighborhoods or runs.
type Scorer struct {
	cal Calibration
	log *zap.Logger
}

// New creates a Scorer with the given calibration table.
func New(cal Calibration) *Scorer {
	return &Scorer{
		cal: cal,
		log: zap.L().With(zap.String("component", "scorer")),
	}
}

// RawScore maps a category distance to its linear-decay sub-score:
// 100 at distance 0, falling linearly to 0 at the calibrated max distance,
// clamped at 0 beyond it. The second return is false when the category has
// no calibration entry and therefore cannot contribute to the composite.
func (s *Scorer) RawScore(cat model.Category, distanceKM float64) (float64, bool) {
	maxDist, ok := s.cal[cat]
	if !ok {
		return 0, false
	}
	return math.Max(0, 100*(1-distanceKM/maxDist)), true
}

// Composite averages the sub-scores of every scorable DistanceResult,
// rounded to one decimal. A neighborhood with zero scorable categories
// scores 0.0 — an explicit fallback so the output stays total, not an error.
// By construction the result is always within [0, 100].
func (s *Scorer) Composite(neighborhoodID int64, results []model.DistanceResult) float64 {
	var sum float64
	var n int
	for _, r := range results {
		raw, ok := s.RawScore(r.Category, r.DistanceKM)
		if !ok {
			s.log.Debug("category has no calibration entry, excluded from composite",
				zap.String("category", string(r.Category)),
			)
			continue
		}
		sum += raw
		n++
	}

	if n == 0 {
		s.log.Warn("neighborhood has no scorable categories, composite defaults to 0",
			zap.Int64("neighborhood_id", neighborhoodID),
		)
		return 0
	}

	return roundScore(sum / float64(n))
}

// Enrich assembles the final per-neighborhood records: base fields, one
// proximity entry per category with data, and the composite score.
func (s *Scorer) Enrich(hoods []model.Neighborhood, results []model.DistanceResult) []model.EnrichedNeighborhood {
	byHood := make(map[int64][]model.DistanceResult)
	for _, r := range results {
		byHood[r.NeighborhoodID] = append(byHood[r.NeighborhoodID], r)
	}

	enriched := make([]model.EnrichedNeighborhood, 0, len(hoods))
	for _, n := range hoods {
		hoodResults := byHood[n.ID]

		distances := make(map[model.Category]model.CategoryProximity, len(hoodResults))
		for _, r := range hoodResults {
			distances[r.Category] = model.CategoryProximity{
				DistanceKM: r.DistanceKM,
				Nearest:    r.NearestPOI,
			}
		}

		enriched = append(enriched, model.EnrichedNeighborhood{
			Neighborhood:   n,
			Distances:      distances,
			CompositeScore: s.Composite(n.ID, hoodResults),
		})
	}
	return enriched
}

// roundScore rounds to one decimal place, the precision of the exported
// composite_score column.
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
