package models

import "time"

// Review represents one unit of user feedback from an app storefront
type Review struct {
	Store       string `json:"store"` // "ios" or "android"
	App         string `json:"app"`   // monitored application name
	Rating      int    `json:"rating"`
	Title       string `json:"title,omitempty"`
	Text        string `json:"text"`
	Author      string `json:"author,omitempty"`
	Version     string `json:"version,omitempty"`
	Date        string `json:"date"` // calendar date as reported by the source, "2006-01-02"
	Fingerprint string `json:"fingerprint"`
	Responded   bool   `json:"responded,omitempty"`
}

// ParsedDate returns the review's observed date, and false when the
// source-reported date is missing or malformed.
func (r Review) ParsedDate() (time.Time, bool) {
	t, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TrendSnapshot holds rolling-window rating statistics, recomputed from
// scratch every run and never persisted.
type TrendSnapshot struct {
	Overall      float64            `json:"overall"`
	Last7Days    float64            `json:"last_7d"`
	Last30Days   float64            `json:"last_30d"`
	TotalReviews int                `json:"total_reviews"`
	ByStore      map[string]int     `json:"by_store"`
	ByApp        map[string]AppStat `json:"by_app"`
}

// AppStat is the per-app slice of the trend snapshot.
type AppStat struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// DailySentiment counts reviews per calendar day in three sentiment classes.
// Days with no reviews carry explicit zeros so charts have no gaps.
type DailySentiment struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

// Buzzword is a frequent-problem term with its occurrence count.
type Buzzword struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Insight tiers, in fallback order.
const (
	InsightOriginRemote    = "remote"
	InsightOriginCache     = "cache"
	InsightOriginHeuristic = "heuristic"
)

// Insights is the topic/insight bundle produced by the tiered resolver.
// The same shape is persisted verbatim as the single-slot analysis cache.
type Insights struct {
	Summary       string     `json:"summary"`
	Topics        []string   `json:"topics"`
	Buzzwords     []Buzzword `json:"buzzwords"`
	TopReviews    []Review   `json:"topReviews"`
	BottomReviews []Review   `json:"bottomReviews"`
	Date          string     `json:"date"`

	// Origin records which tier produced this bundle. Not persisted.
	Origin string `json:"-"`
}

// Report is the full run output handed to the rendering collaborator.
type Report struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Period       string           `json:"period"`
	NewReviews   int              `json:"new_reviews"`
	TotalReviews int              `json:"total_reviews"`
	Trend        *TrendSnapshot   `json:"trend"`
	Daily        []DailySentiment `json:"daily"`
	Insights     *Insights        `json:"insights"`
	Reviews      []Review         `json:"reviews"`
}

// Alert represents an urgent notification, e.g. a spike of negative reviews.
type Alert struct {
	Type      string    `json:"type"` // "critical", "urgent", "info"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Review    *Review   `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
