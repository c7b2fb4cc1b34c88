package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
)

func snapshotAt(id string, takenAt time.Time, composite float64) *domain.Snapshot {
	return &domain.Snapshot{
		ID:      id,
		TakenAt: takenAt,
		Articles: []domain.Article{
			{ID: id + "-a", Category: "Macro", Title: "headline", Published: takenAt},
		},
		Heat: []domain.CategoryHeat{
			{Category: "Macro", NewsCount: 1, Composite: composite},
			{Category: "Technology", NewsCount: 0, Composite: 0},
		},
	}
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	memory := NewRepository()
	t.Cleanup(func() { _ = memory.Close() })

	return map[string]Repository{"memory": memory, "sqlite": sqlite}
}

func TestLatest_Empty(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		_, err := repo.Latest(context.Background())
		assert.ErrorIs(t, err, ErrNoSnapshot, name)
	}
}

func TestSaveSnapshotAndLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, repo := range repositories(t) {
		base := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.SaveSnapshot(ctx, snapshotAt("s1", base.Add(-time.Hour), 0.1)), name)
		require.NoError(t, repo.SaveSnapshot(ctx, snapshotAt("s2", base, 0.5)), name)

		snap, err := repo.Latest(ctx)
		require.NoError(t, err, name)
		assert.Equal(t, "s2", snap.ID, name)
		require.Len(t, snap.Articles, 1, name)
		assert.Equal(t, "Macro", snap.Articles[0].Category, name)
	}
}

func TestHeatHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, repo := range repositories(t) {
		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 5; i++ {
			snap := snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Minute), float64(i))
			require.NoError(t, repo.SaveSnapshot(ctx, snap), name)
		}

		rows, err := repo.HeatHistory(ctx, "Macro", 3)
		require.NoError(t, err, name)
		require.Len(t, rows, 3, name)

		// Newest first.
		assert.Equal(t, 4.0, rows[0].Composite, name)
		assert.Equal(t, 2.0, rows[2].Composite, name)

		none, err := repo.HeatHistory(ctx, "Unknown", 3)
		require.NoError(t, err, name)
		assert.Empty(t, none, name)
	}
}

func TestAlerts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, repo := range repositories(t) {
		base := time.Now().UTC().Truncate(time.Second)
		batch := []domain.Alert{
			{ID: "a1", Kind: domain.AlertKindData, Title: "Macro", Detail: "older", At: base.Add(-time.Minute), Severity: 3},
			{ID: "a2", Kind: domain.AlertKindGeo, Title: "USGS", Detail: "newer", At: base, Severity: 4},
		}
		require.NoError(t, repo.SaveAlerts(ctx, batch), name)

		out, err := repo.RecentAlerts(ctx, 10)
		require.NoError(t, err, name)
		require.Len(t, out, 2, name)
		assert.Equal(t, "a2", out[0].ID, name)

		one, err := repo.RecentAlerts(ctx, 1)
		require.NoError(t, err, name)
		require.Len(t, one, 1, name)
		assert.Equal(t, "a2", one[0].ID, name)
	}
}

func TestSaveAlerts_IgnoresDuplicateIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "dupes.db"))
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	a := domain.Alert{ID: "same", Kind: domain.AlertKindData, Title: "t", Detail: "d", At: time.Now().UTC(), Severity: 2}
	require.NoError(t, repo.SaveAlerts(ctx, []domain.Alert{a}))
	require.NoError(t, repo.SaveAlerts(ctx, []domain.Alert{a}))

	out, err := repo.RecentAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSnapshotHistoryIsBounded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRepository()

	base := time.Now().UTC()
	for i := 0; i < maxSnapshotsKept+10; i++ {
		snap := snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Second), 0)
		require.NoError(t, repo.SaveSnapshot(ctx, snap))
	}

	rows, err := repo.HeatHistory(ctx, "Macro", maxSnapshotsKept+10)
	require.NoError(t, err)
	assert.Len(t, rows, maxSnapshotsKept)
}
