package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRunLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	summary := &model.RunSummary{
		Neighborhoods:    10,
		POIs:             1234,
		ScoredCategories: []model.Category{model.CategorySchools},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 10, got.Summary.Neighborhoods)
	assert.Equal(t, 1234, got.Summary.POIs)
}

func TestFailRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "load pois: boom"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "load pois: boom", got.Error)
	assert.Nil(t, got.Summary)
}

func TestCompleteRun_UnknownID(t *testing.T) {
	st := newTestStore(t)
	err := st.CompleteRun(context.Background(), "no-such-run", &model.RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetRun_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestListRuns_FilterAndLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx)
	require.NoError(t, err)
	b, err := st.CreateRun(ctx)
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, a.ID, &model.RunSummary{}))
	require.NoError(t, st.FailRun(ctx, b.ID, "boom"))

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	snap := &model.Snapshot{
		RunID: run.ID,
		Neighborhoods: []model.EnrichedNeighborhood{
			{
				Neighborhood: model.Neighborhood{ID: 1, NameHe: "רמת אביב", Latitude: 32.113, Longitude: 34.8},
				Distances: map[model.Category]model.CategoryProximity{
					model.CategorySchools: {DistanceKM: 0.42, Nearest: "אליאנס"},
				},
				CompositeScore: 79.0,
			},
		},
		POIs: []model.POI{
			{ID: 10, Name: "אליאנס", Category: model.CategorySchools, Latitude: 32.11, Longitude: 34.8},
		},
	}
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	got, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.RunID)
	require.Len(t, got.Neighborhoods, 1)
	assert.Equal(t, 79.0, got.Neighborhoods[0].CompositeScore)
	assert.Equal(t, "אליאנס", got.Neighborhoods[0].Distances[model.CategorySchools].Nearest)
	require.Len(t, got.POIs, 1)
}

func TestSaveSnapshot_UpsertSameRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	first := &model.Snapshot{RunID: run.ID, POIs: []model.POI{{ID: 1, Latitude: 32, Longitude: 34.8}}}
	require.NoError(t, st.SaveSnapshot(ctx, first))

	second := &model.Snapshot{RunID: run.ID, POIs: []model.POI{
		{ID: 1, Latitude: 32, Longitude: 34.8},
		{ID: 2, Latitude: 32.1, Longitude: 34.9},
	}}
	require.NoError(t, st.SaveSnapshot(ctx, second))

	got, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got.POIs, 2)
}

func TestLatestSnapshot_PicksNewest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old, err := st.CreateRun(ctx)
	require.NoError(t, err)
	newer, err := st.CreateRun(ctx)
	require.NoError(t, err)

	base := time.Now().UTC()
	require.NoError(t, st.SaveSnapshot(ctx, &model.Snapshot{RunID: old.ID, CreatedAt: base.Add(-time.Hour)}))
	require.NoError(t, st.SaveSnapshot(ctx, &model.Snapshot{RunID: newer.ID, CreatedAt: base}))

	got, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.RunID)
}

func TestLatestSnapshot_Empty(t *testing.T) {
	st := newTestStore(t)
	_, err := st.LatestSnapshot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
