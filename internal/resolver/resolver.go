package resolver

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// ResolveCategory joins one category's POIs against the neighborhood
// centroids, producing exactly one DistanceResult per neighborhood.
// An empty POI slice yields no results (the category is absent, not zero).
func ResolveCategory(cat model.Category, pois []model.POI, hoods []model.Neighborhood) ([]model.DistanceResult, error) {
	if len(pois) == 0 {
		return nil, nil
	}

	ix, err := NewIndex(pois)
	if err != nil {
		return nil, err
	}

	results := make([]model.DistanceResult, 0, len(hoods))
	for _, n := range hoods {
		poi, km := ix.Nearest(n.Latitude, n.Longitude)
		results = append(results, model.DistanceResult{
			NeighborhoodID: n.ID,
			Category:       cat,
			DistanceKM:     RoundKM(km),
			NearestPOI:     poi.Name,
		})
	}
	return results, nil
}

// Resolve runs the spatial join for every category, fanning out one
// goroutine per category. Inputs are read-only and each goroutine writes
// only its own result slot, so no locking is needed.
func Resolve(ctx context.Context, hoods []model.Neighborhood, poisByCat map[model.Category][]model.POI) ([]model.DistanceResult, error) {
	cats := make([]model.Category, 0, len(poisByCat))
	for c := range poisByCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	log := zap.L().With(zap.String("component", "resolver"))

	perCat := make([][]model.DistanceResult, len(cats))
	g, _ := errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			log.Info("resolving nearest pois",
				zap.String("category", string(cat)),
				zap.Int("pois", len(poisByCat[cat])),
			)
			results, err := ResolveCategory(cat, poisByCat[cat], hoods)
			if err != nil {
				return err
			}
			perCat[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Flatten in category order so output is deterministic.
	var all []model.DistanceResult
	for _, results := range perCat {
		all = append(all, results...)
	}
	return all, nil
}

// RoundKM rounds a distance to two decimal places, the precision carried
// through exports and scoring.
func RoundKM(km float64) float64 {
	return math.Round(km*100) / 100
}
