package insights

import (
	"context"
	"fmt"
	"testing"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAIClient is a canned remote tier.
type fakeAIClient struct {
	insights *models.Insights
	err      error
	calls    int
}

func (f *fakeAIClient) Analyze(_ context.Context, _, _ []models.Review) (*models.Insights, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.insights
	return &out, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	backend, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewCache(backend, "analysis.json")
}

func resolverReviews() []models.Review {
	var reviews []models.Review
	for i := 0; i < 6; i++ {
		reviews = append(reviews, models.Review{
			Store:       "ios",
			App:         "Nordkurier",
			Rating:      (i % 5) + 1,
			Text:        fmt.Sprintf("Ausführliche Rezension Nummer %d über die Artikelansicht", i),
			Date:        "2025-08-20",
			Fingerprint: fmt.Sprintf("fp-%d", i),
		})
	}
	return reviews
}

func TestResolve_RemoteSuccessUpdatesCache(t *testing.T) {
	cache := newTestCache(t)
	ai := &fakeAIClient{insights: &models.Insights{
		Summary: "Die Stimmung ist überwiegend positiv.",
		Topics:  []string{"Artikelansicht"},
		Date:    "2025-08-20",
	}}

	resolver := NewResolver(ai, nil, cache, 5, 120, 30)
	resolved := resolver.Resolve(context.Background(), resolverReviews())

	require.NotNil(t, resolved)
	assert.Equal(t, models.InsightOriginRemote, resolved.Origin)
	assert.Equal(t, 1, ai.calls)

	// The success became the new cache baseline.
	cached := cache.Get()
	require.NotNil(t, cached)
	assert.Equal(t, models.InsightOriginCache, cached.Origin)
	assert.Equal(t, resolved.Summary, cached.Summary)
}

func TestResolve_RemoteFailureFallsBackToCache(t *testing.T) {
	cache := newTestCache(t)
	baseline := &models.Insights{
		Summary: "Analyse vom Vortag.",
		Topics:  []string{"Werbung"},
		Date:    "2025-08-19",
	}
	require.NoError(t, cache.Put(baseline))

	ai := &fakeAIClient{err: fmt.Errorf("quota exceeded")}
	resolver := NewResolver(ai, nil, cache, 5, 120, 30)

	resolved := resolver.Resolve(context.Background(), resolverReviews())

	require.NotNil(t, resolved)
	assert.Equal(t, models.InsightOriginCache, resolved.Origin)
	assert.Equal(t, baseline.Summary, resolved.Summary)
	assert.Equal(t, baseline.Date, resolved.Date)

	// The fallback path never writes the cache.
	cached := cache.Get()
	require.NotNil(t, cached)
	assert.Equal(t, baseline.Summary, cached.Summary)
	assert.Equal(t, baseline.Date, cached.Date)
}

func TestResolve_EmptyCacheFallsBackToHeuristics(t *testing.T) {
	cache := newTestCache(t)
	ai := &fakeAIClient{err: fmt.Errorf("service unavailable")}
	resolver := NewResolver(ai, nil, cache, 5, 120, 30)

	resolved := resolver.Resolve(context.Background(), resolverReviews())

	require.NotNil(t, resolved)
	assert.Equal(t, models.InsightOriginHeuristic, resolved.Origin)
	assert.NotEmpty(t, resolved.Summary)

	// Heuristic output must not become the fallback baseline.
	assert.Nil(t, cache.Get())
}

func TestResolve_NoAIClientSkipsRemoteTier(t *testing.T) {
	cache := newTestCache(t)
	resolver := NewResolver(nil, nil, cache, 5, 120, 30)

	resolved := resolver.Resolve(context.Background(), resolverReviews())

	require.NotNil(t, resolved)
	assert.Equal(t, models.InsightOriginHeuristic, resolved.Origin)
}

func TestResolve_NoUsableTextSkipsRemoteCall(t *testing.T) {
	cache := newTestCache(t)
	ai := &fakeAIClient{insights: &models.Insights{Summary: "unreachable"}}
	resolver := NewResolver(ai, nil, cache, 5, 120, 30)

	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: "2025-08-20"},
	}
	resolved := resolver.Resolve(context.Background(), reviews)

	require.NotNil(t, resolved)
	assert.Equal(t, models.InsightOriginHeuristic, resolved.Origin)
	assert.Zero(t, ai.calls)
}

func TestResolve_BackfillsHighlightsByFingerprint(t *testing.T) {
	cache := newTestCache(t)
	reviews := resolverReviews()

	ai := &fakeAIClient{insights: &models.Insights{
		Summary: "Zusammenfassung.",
		Topics:  []string{"Artikelansicht"},
		TopReviews: []models.Review{
			{Fingerprint: "fp-2"},
			{Fingerprint: "unbekannt"},
		},
		BottomReviews: []models.Review{
			{Fingerprint: "fp-4", Text: "abgeschnittener Modelltext"},
		},
	}}

	resolver := NewResolver(ai, nil, cache, 5, 120, 30)
	resolved := resolver.Resolve(context.Background(), reviews)

	// Known fingerprints resolve to the full history record, unknown ones
	// are dropped instead of trusted.
	require.Len(t, resolved.TopReviews, 1)
	assert.Equal(t, reviews[2], resolved.TopReviews[0])

	require.Len(t, resolved.BottomReviews, 1)
	assert.Equal(t, reviews[4].Text, resolved.BottomReviews[0].Text)
}

func TestCache_MissAndCorruption(t *testing.T) {
	backend, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	cache := NewCache(backend, "analysis.json")

	assert.Nil(t, cache.Get(), "missing file is a miss")

	require.NoError(t, backend.Store("analysis.json", []byte("{broken")))
	assert.Nil(t, cache.Get(), "corrupt file is a miss")

	require.NoError(t, backend.Store("analysis.json", []byte("{}")))
	assert.Nil(t, cache.Get(), "empty bundle is a miss")
}

func TestCache_RoundTrip(t *testing.T) {
	cache := newTestCache(t)

	put := &models.Insights{
		Summary:   "Stabile Lage.",
		Topics:    []string{"ePaper", "Werbung"},
		Buzzwords: []models.Buzzword{{Term: "stürzt ab", Count: 4}},
		Date:      "2025-08-20",
		Origin:    models.InsightOriginRemote,
	}
	require.NoError(t, cache.Put(put))

	got := cache.Get()
	require.NotNil(t, got)
	assert.Equal(t, put.Summary, got.Summary)
	assert.Equal(t, put.Topics, got.Topics)
	assert.Equal(t, put.Buzzwords, got.Buzzwords)
	assert.Equal(t, put.Date, got.Date)

	// Origin reflects the serving tier, not the producing one.
	assert.Equal(t, models.InsightOriginCache, got.Origin)
}
