// Package pipeline orchestrates the scoring ETL: load POI and neighborhood
// tables, resolve nearest-POI distances, fold them into composite scores,
// and write the output artifacts. A single directed pass; no stage re-enters
// an earlier one.
package pipeline

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/export"
	"github.com/neighborhood-insights/insights-cli/internal/loader"
	"github.com/neighborhood-insights/insights-cli/internal/model"
	"github.com/neighborhood-insights/insights-cli/internal/resolver"
	"github.com/neighborhood-insights/insights-cli/internal/scorer"
	"github.com/neighborhood-insights/insights-cli/internal/store"
)

// Pipeline wires the ETL stages together. Store is optional; when set, runs
// and the resulting snapshot are persisted for the API to serve.
type Pipeline struct {
	POIs          *loader.POISource
	Neighborhoods []model.Neighborhood
	Scorer        *scorer.Scorer
	Exporter      *export.Exporter
	Store         store.Store

	log *zap.Logger
}

// New creates a Pipeline.
func New(pois *loader.POISource, hoods []model.Neighborhood, sc *scorer.Scorer, exp *export.Exporter, st store.Store) *Pipeline {
	return &Pipeline{
		POIs:          pois,
		Neighborhoods: hoods,
		Scorer:        sc,
		Exporter:      exp,
		Store:         st,
		log:           zap.L().With(zap.String("component", "pipeline")),
	}
}

// Run executes one full pass. Category-level problems degrade gracefully
// (logged and skipped); only I/O failures on the outputs abort the run.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	var runID string
	if p.Store != nil {
		run, err := p.Store.CreateRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	summary, snapshot, err := p.run(ctx)
	if p.Store != nil {
		if err != nil {
			if failErr := p.Store.FailRun(ctx, runID, err.Error()); failErr != nil {
				p.log.Warn("failed to record run failure", zap.String("run_id", runID), zap.Error(failErr))
			}
			return nil, err
		}
		snapshot.RunID = runID
		if err := p.Store.SaveSnapshot(ctx, snapshot); err != nil {
			return nil, err
		}
		if err := p.Store.CompleteRun(ctx, runID, summary); err != nil {
			return nil, err
		}
	}
	return summary, err
}

func (p *Pipeline) run(ctx context.Context) (*model.RunSummary, *model.Snapshot, error) {
	if len(p.Neighborhoods) == 0 {
		return nil, nil, eris.New("pipeline: no neighborhoods to score")
	}

	poisByCat, err := p.POIs.Load(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: load pois")
	}
	if len(poisByCat) == 0 {
		p.log.Warn("no poi categories loaded; all composite scores will be 0")
	}

	results, err := resolver.Resolve(ctx, p.Neighborhoods, poisByCat)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: resolve distances")
	}

	enriched := p.Scorer.Enrich(p.Neighborhoods, results)

	if err := p.Exporter.WriteAll(enriched, poisByCat); err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: export")
	}

	summary := p.summarize(poisByCat)
	snapshot := &model.Snapshot{
		Neighborhoods: enriched,
		POIs:          flattenPOIs(poisByCat),
	}

	p.log.Info("pipeline run complete",
		zap.Int("neighborhoods", summary.Neighborhoods),
		zap.Int("pois", summary.POIs),
		zap.Int("scored_categories", len(summary.ScoredCategories)),
		zap.Int("skipped_categories", len(summary.SkippedCategories)),
	)
	return summary, snapshot, nil
}

func (p *Pipeline) summarize(poisByCat map[model.Category][]model.POI) *model.RunSummary {
	summary := &model.RunSummary{Neighborhoods: len(p.Neighborhoods)}

	for _, cat := range p.POIs.Categories() {
		pois, ok := poisByCat[cat]
		if !ok {
			summary.SkippedCategories = append(summary.SkippedCategories, cat)
			continue
		}
		summary.ScoredCategories = append(summary.ScoredCategories, cat)
		summary.POIs += len(pois)
	}
	return summary
}

func flattenPOIs(poisByCat map[model.Category][]model.POI) []model.POI {
	var all []model.POI
	for _, cat := range sortedKeys(poisByCat) {
		all = append(all, poisByCat[cat]...)
	}
	return all
}

func sortedKeys(m map[model.Category][]model.POI) []model.Category {
	cats := make([]model.Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
