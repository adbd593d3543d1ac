package insights

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// AIClient is the remote analysis capability. A nil client means the
// capability is absent (no credentials) and the resolver starts at the
// cache tier.
type AIClient interface {
	Analyze(ctx context.Context, representatives, sample []models.Review) (*models.Insights, error)
}

// Resolver runs the three-tier topic/insight chain: remote AI first, the
// last-good cached analysis on failure, local keyword heuristics when the
// cache is empty too. The final tier always succeeds, so Resolve never
// returns nil.
type Resolver struct {
	ai     AIClient
	engine *Engine
	cache  *Cache

	topicCount    int
	sampleLimit   int
	minTextLength int
}

// NewResolver creates a resolver. engine may be nil when no embedding
// capability exists; the remote tier then runs on the recent sample alone.
func NewResolver(ai AIClient, engine *Engine, cache *Cache, topicCount, sampleLimit, minTextLength int) *Resolver {
	if topicCount <= 0 {
		topicCount = 5
	}
	if sampleLimit <= 0 {
		sampleLimit = 120
	}
	return &Resolver{
		ai:            ai,
		engine:        engine,
		cache:         cache,
		topicCount:    topicCount,
		sampleLimit:   sampleLimit,
		minTextLength: minTextLength,
	}
}

// Resolve produces the insight bundle for the given history, newest first.
// The cache is only written after a new remote success; fallback paths
// leave it untouched, so resolving twice over identical input and a
// populated cache cannot change the cache.
func (r *Resolver) Resolve(ctx context.Context, reviews []models.Review) *models.Insights {
	if r.ai != nil {
		insights, err := r.tryRemote(ctx, reviews)
		if err == nil {
			if cacheErr := r.cache.Put(insights); cacheErr != nil {
				logrus.Errorf("Failed to update analysis cache: %v", cacheErr)
			}
			logrus.Info("Insights resolved by remote AI analysis")
			return insights
		}
		logrus.Warnf("Remote analysis failed, falling back to cache: %v", err)
	} else {
		logrus.Info("No AI credentials configured, skipping remote analysis")
	}

	if cached := r.cache.Get(); cached != nil {
		logrus.Infof("Insights resolved from cached analysis of %s", cached.Date)
		return cached
	}

	logrus.Info("Analysis cache is empty, computing local heuristics")
	return localInsights(reviews, r.minTextLength, r.sampleLimit)
}

func (r *Resolver) tryRemote(ctx context.Context, reviews []models.Review) (*models.Insights, error) {
	var representatives []models.Review
	if r.engine != nil {
		var err error
		representatives, err = r.engine.ExtractTopics(ctx, reviews, r.topicCount)
		if err != nil {
			// The sample alone still gives the model something to label.
			logrus.Warnf("Topic clustering failed, sending sample only: %v", err)
			representatives = nil
		}
	}

	sample := r.recentSample(reviews)
	if len(sample) == 0 && len(representatives) == 0 {
		return nil, fmt.Errorf("no reviews with usable text to analyze")
	}

	insights, err := r.ai.Analyze(ctx, representatives, sample)
	if err != nil {
		return nil, err
	}

	insights.TopReviews = r.backfillHighlights(insights.TopReviews, reviews)
	insights.BottomReviews = r.backfillHighlights(insights.BottomReviews, reviews)
	insights.Origin = models.InsightOriginRemote

	return insights, nil
}

// recentSample bounds how much review text goes onto the wire: the newest
// reviews that carry any text, up to the sample limit.
func (r *Resolver) recentSample(reviews []models.Review) []models.Review {
	var sample []models.Review
	for _, review := range reviews {
		if utf8.RuneCountInString(review.Text) == 0 {
			continue
		}
		sample = append(sample, review)
		if len(sample) >= r.sampleLimit {
			break
		}
	}
	return sample
}

// backfillHighlights swaps each returned highlight for the full history
// record with the same fingerprint. The fingerprint rode through the AI
// round-trip, so the match is exact; highlights whose fingerprint does not
// resolve are dropped rather than trusted.
func (r *Resolver) backfillHighlights(highlights, reviews []models.Review) []models.Review {
	if len(highlights) == 0 {
		return nil
	}

	byFingerprint := make(map[string]models.Review, len(reviews))
	for _, review := range reviews {
		byFingerprint[review.Fingerprint] = review
	}

	var resolved []models.Review
	for _, h := range highlights {
		full, ok := byFingerprint[h.Fingerprint]
		if !ok {
			logrus.Debugf("Dropping highlight with unknown fingerprint %q", h.Fingerprint)
			continue
		}
		resolved = append(resolved, full)
		if len(resolved) >= highlightCount {
			break
		}
	}
	return resolved
}
