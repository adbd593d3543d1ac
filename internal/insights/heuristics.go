package insights

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/feedwatch/appfeedback-bot/internal/models"
)

const (
	localTopicCount    = 5
	localBuzzwordCount = 8
	highlightCount     = 3
	minTopicWordLen    = 4
	minBuzzwordPartLen = 3
)

// stopWords excludes filler vocabulary from the keyword heuristics. The
// review base is mostly German with the occasional English review mixed in.
var stopWords = map[string]bool{
	// German
	"aber": true, "alle": true, "alles": true, "auch": true, "beim": true,
	"dann": true, "dass": true, "dem": true, "den": true, "der": true,
	"des": true, "die": true, "das": true, "diese": true, "doch": true,
	"eine": true, "einem": true, "einen": true, "einer": true, "für": true,
	"habe": true, "haben": true, "hat": true, "ich": true, "immer": true,
	"ist": true, "kann": true, "kein": true, "keine": true, "leider": true,
	"man": true, "mehr": true, "mein": true, "meine": true, "mit": true,
	"nach": true, "nicht": true, "noch": true, "nur": true, "oder": true,
	"schon": true, "sehr": true, "seit": true, "sich": true, "sind": true,
	"und": true, "warum": true, "wenn": true, "wieder": true, "wird": true,
	"wurde": true, "zum": true, "zur": true,
	// English
	"about": true, "after": true, "also": true, "and": true, "app": true,
	"been": true, "but": true, "cant": true, "does": true, "doesnt": true,
	"for": true, "from": true, "have": true, "just": true, "like": true,
	"not": true, "only": true, "that": true, "the": true, "this": true,
	"very": true, "what": true, "when": true, "with": true, "would": true,
	"you": true, "your": true,
}

// negativeKeywords guard the "best" highlight selection against reviews
// that carry a high rating but complain anyway.
var negativeKeywords = []string{
	"absturz", "stürzt", "abstürze", "fehler", "problem", "schlecht",
	"langsam", "hängt", "werbung", "crash", "bug", "error", "broken",
	"terrible", "awful", "useless",
}

// localInsights computes the terminal heuristic tier. It always succeeds;
// with nothing to count it still returns a renderable placeholder bundle.
func localInsights(reviews []models.Review, minTextLength, sampleLimit int) *models.Insights {
	sample := textSample(reviews, minTextLength, sampleLimit)
	brands := brandNames(reviews)

	insights := &models.Insights{
		Summary:   "No analysis available. Topics below are keyword frequencies from recent reviews, not an AI assessment.",
		Topics:    topWords(sample, brands),
		Buzzwords: topBigrams(sample, brands),
		Date:      time.Now().Format("2006-01-02"),
		Origin:    models.InsightOriginHeuristic,
	}

	insights.TopReviews = bestHighlights(reviews)
	insights.BottomReviews = worstHighlights(reviews)

	return insights
}

// textSample returns the most recent reviews with usable text, bounded so
// the counting work stays proportional to one run.
func textSample(reviews []models.Review, minTextLength, limit int) []models.Review {
	var sample []models.Review
	for _, r := range reviews {
		if utf8.RuneCountInString(r.Text) >= minTextLength {
			sample = append(sample, r)
		}
		if limit > 0 && len(sample) >= limit {
			break
		}
	}
	return sample
}

// brandNames collects the monitored product names so they never show up as
// "topics" of their own reviews.
func brandNames(reviews []models.Review) map[string]bool {
	brands := make(map[string]bool)
	for _, r := range reviews {
		for _, part := range strings.Fields(strings.ToLower(r.App)) {
			brands[part] = true
		}
	}
	return brands
}

// topWords returns the most frequent sufficiently-long words across the
// sample, excluding stop words and the product names themselves.
func topWords(sample []models.Review, brands map[string]bool) []string {
	counts := make(map[string]int)
	for _, r := range sample {
		for _, word := range tokenize(r.Text) {
			if utf8.RuneCountInString(word) < minTopicWordLen {
				continue
			}
			if stopWords[word] || brands[word] {
				continue
			}
			counts[word]++
		}
	}

	ranked := rankCounts(counts)
	if len(ranked) > localTopicCount {
		ranked = ranked[:localTopicCount]
	}

	topics := make([]string, len(ranked))
	for i, b := range ranked {
		topics[i] = b.Term
	}
	return topics
}

// topBigrams returns the most frequent adjacent-word pairs where both parts
// meet the minimum length and neither is a stop word.
func topBigrams(sample []models.Review, brands map[string]bool) []models.Buzzword {
	counts := make(map[string]int)
	for _, r := range sample {
		words := tokenize(r.Text)
		for i := 0; i+1 < len(words); i++ {
			first, second := words[i], words[i+1]
			if utf8.RuneCountInString(first) < minBuzzwordPartLen || utf8.RuneCountInString(second) < minBuzzwordPartLen {
				continue
			}
			if stopWords[first] || stopWords[second] || brands[first] || brands[second] {
				continue
			}
			counts[first+" "+second]++
		}
	}

	ranked := rankCounts(counts)
	if len(ranked) > localBuzzwordCount {
		ranked = ranked[:localBuzzwordCount]
	}
	return ranked
}

// bestHighlights picks the most substantive positive reviews: rating >= 4,
// no negative-sentiment keyword in the text, longest text first.
func bestHighlights(reviews []models.Review) []models.Review {
	var candidates []models.Review
	for _, r := range reviews {
		if r.Rating < 4 || r.Text == "" {
			continue
		}
		if containsNegativeKeyword(r.Text) {
			continue
		}
		candidates = append(candidates, r)
	}
	return longestFirst(candidates)
}

// worstHighlights picks the most substantive negative reviews, longest
// text first as a proxy for substance.
func worstHighlights(reviews []models.Review) []models.Review {
	var candidates []models.Review
	for _, r := range reviews {
		if r.Rating > 2 || r.Text == "" {
			continue
		}
		candidates = append(candidates, r)
	}
	return longestFirst(candidates)
}

func containsNegativeKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range negativeKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func longestFirst(candidates []models.Review) []models.Review {
	sort.SliceStable(candidates, func(i, j int) bool {
		return utf8.RuneCountInString(candidates[i].Text) > utf8.RuneCountInString(candidates[j].Text)
	})
	if len(candidates) > highlightCount {
		candidates = candidates[:highlightCount]
	}
	return candidates
}

// tokenize lowercases the text and splits on anything that is not a letter.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// rankCounts orders terms by count descending, breaking ties alphabetically
// so heuristic output is deterministic.
func rankCounts(counts map[string]int) []models.Buzzword {
	ranked := make([]models.Buzzword, 0, len(counts))
	for term, count := range counts {
		ranked = append(ranked, models.Buzzword{Term: term, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Term < ranked[j].Term
	})
	return ranked
}
