package insights

import (
	"context"
	"fmt"
	"testing"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder serves fixed vectors per text so clustering runs without a
// network dependency.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

var (
	crashTexts = []string{
		"Die App stürzt seit dem letzten Update ständig ab",
		"Nach dem Update stürzt die App beim Öffnen sofort ab",
		"Ständige Abstürze machen die App unbenutzbar",
	}
	adTexts = []string{
		"Viel zu viel Werbung zwischen den Artikeln",
		"Die Werbung unterbricht jeden zweiten Artikel",
		"Werbebanner verdecken die Hälfte des Bildschirms",
	}
)

func twoTopicEmbedder() *stubEmbedder {
	vectors := make(map[string][]float64)
	for i, text := range crashTexts {
		vectors[text] = []float64{1.0, 0.05 * float64(i+1)}
	}
	for i, text := range adTexts {
		vectors[text] = []float64{0.05 * float64(i+1), 1.0}
	}
	return &stubEmbedder{vectors: vectors}
}

func clusterReviews() []models.Review {
	var reviews []models.Review
	for i, text := range append(append([]string{}, crashTexts...), adTexts...) {
		reviews = append(reviews, models.Review{
			Store:       "ios",
			App:         "Nordkurier",
			Rating:      2,
			Text:        text,
			Date:        "2025-08-20",
			Fingerprint: fmt.Sprintf("fp-%d", i),
		})
	}
	return reviews
}

func TestExtractTopics_OneRepresentativePerCluster(t *testing.T) {
	engine := NewEngine(twoTopicEmbedder(), 10)

	representatives, err := engine.ExtractTopics(context.Background(), clusterReviews(), 2)
	require.NoError(t, err)
	require.Len(t, representatives, 2)

	// One representative per theme, never two from the same cluster.
	themes := make(map[string]int)
	for _, rep := range representatives {
		for _, text := range crashTexts {
			if rep.Text == text {
				themes["crash"]++
			}
		}
		for _, text := range adTexts {
			if rep.Text == text {
				themes["ads"]++
			}
		}
	}
	assert.Equal(t, 1, themes["crash"])
	assert.Equal(t, 1, themes["ads"])
}

func TestExtractTopics_Deterministic(t *testing.T) {
	engine := NewEngine(twoTopicEmbedder(), 10)

	first, err := engine.ExtractTopics(context.Background(), clusterReviews(), 2)
	require.NoError(t, err)
	second, err := engine.ExtractTopics(context.Background(), clusterReviews(), 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractTopics_ReducesKToQualifyingCount(t *testing.T) {
	engine := NewEngine(twoTopicEmbedder(), 10)

	representatives, err := engine.ExtractTopics(context.Background(), clusterReviews(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, representatives)
	assert.LessOrEqual(t, len(representatives), 6)

	seen := make(map[string]bool)
	for _, rep := range representatives {
		assert.False(t, seen[rep.Fingerprint], "representative %s returned twice", rep.Fingerprint)
		seen[rep.Fingerprint] = true
	}
}

func TestExtractTopics_BelowFloorYieldsEmpty(t *testing.T) {
	embedder := twoTopicEmbedder()
	engine := NewEngine(embedder, 10)

	representatives, err := engine.ExtractTopics(context.Background(), clusterReviews()[:4], 3)
	require.NoError(t, err)
	assert.Empty(t, representatives)
	assert.Zero(t, embedder.calls, "no embedding call expected below the floor")
}

func TestExtractTopics_ShortTextsDoNotQualify(t *testing.T) {
	embedder := twoTopicEmbedder()
	engine := NewEngine(embedder, 10)

	reviews := clusterReviews()[:3]
	for _, text := range []string{"gut", "schlecht", "ok", "super"} {
		reviews = append(reviews, models.Review{App: "Nordkurier", Rating: 3, Text: text, Date: "2025-08-20"})
	}

	// 3 qualifying + 4 too-short is still below the floor of 5.
	representatives, err := engine.ExtractTopics(context.Background(), reviews, 3)
	require.NoError(t, err)
	assert.Empty(t, representatives)
	assert.Zero(t, embedder.calls)
}

func TestExtractTopics_EmbedderFailurePropagates(t *testing.T) {
	engine := NewEngine(&stubEmbedder{err: fmt.Errorf("quota exceeded")}, 10)

	_, err := engine.ExtractTopics(context.Background(), clusterReviews(), 2)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1}, []float64{1, 2}))
}
