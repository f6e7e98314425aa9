package research

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "research.db"), 24*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(marketID string) *Result {
	return &Result{
		MarketID:             marketID,
		MarketTitle:          "Will X happen by 2026?",
		Summary:              "Recent reporting suggests momentum.",
		EstimatedProbability: 0.62,
		Confidence:           0.7,
		KeyFactors:           []string{"polling trend", "official statement"},
		Sources:              []Source{{Title: "Example", URL: "https://example.com/a"}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleResult("mkt-1")))

	got, err := store.Get(ctx, "mkt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mkt-1", got.MarketID)
	assert.Equal(t, 0.62, got.EstimatedProbability)
	assert.Equal(t, []string{"polling trend", "official statement"}, got.KeyFactors)
	assert.Len(t, got.Sources, 1)
	assert.NotEmpty(t, got.ResearchTime)
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "never-researched")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })
	require.NoError(t, store.Save(ctx, sampleResult("mkt-1")))

	// 23 hours later the entry is still fresh
	store.SetClock(func() time.Time { return base.Add(23 * time.Hour) })
	got, err := store.Get(ctx, "mkt-1")
	require.NoError(t, err)
	assert.NotNil(t, got)

	// 25 hours later Get hides it, but ListAll still shows the row
	store.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	got, err = store.Get(ctx, "mkt-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "mkt-1", entries[0].MarketID)
}

func TestStoreLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })
	require.NoError(t, store.Save(ctx, sampleResult("mkt-1")))

	// Re-researching replaces the row and refreshes its timestamp
	later := sampleResult("mkt-1")
	later.EstimatedProbability = 0.30
	later.Summary = "New evidence cuts the other way."
	store.SetClock(func() time.Time { return base.Add(30 * time.Hour) })
	require.NoError(t, store.Save(ctx, later))

	got, err := store.Get(ctx, "mkt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.30, got.EstimatedProbability)

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleResult("mkt-1")))
	require.NoError(t, store.Delete(ctx, "mkt-1"))

	got, err := store.Get(ctx, "mkt-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
