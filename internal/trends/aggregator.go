package trends

import (
	"math"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/models"
)

// Rating boundaries for the three sentiment classes.
const (
	positiveMinRating = 4
	negativeMaxRating = 2
)

// Compute derives the trend snapshot from the current history contents.
// Records without a parseable date are ignored. A window with no qualifying
// reviews reports 0.0 instead of failing.
func Compute(reviews []models.Review, now time.Time) *models.TrendSnapshot {
	snapshot := &models.TrendSnapshot{
		ByStore: make(map[string]int),
		ByApp:   make(map[string]models.AppStat),
	}

	cutoff7 := now.AddDate(0, 0, -7)
	cutoff30 := now.AddDate(0, 0, -30)

	var sumAll, sum7, sum30 int
	var count7, count30 int
	appSums := make(map[string]int)

	for _, r := range reviews {
		date, ok := r.ParsedDate()
		if !ok {
			continue
		}

		snapshot.TotalReviews++
		snapshot.ByStore[r.Store]++
		sumAll += r.Rating

		appSums[r.App] += r.Rating
		stat := snapshot.ByApp[r.App]
		stat.Count++
		snapshot.ByApp[r.App] = stat

		if !date.Before(cutoff7) {
			sum7 += r.Rating
			count7++
		}
		if !date.Before(cutoff30) {
			sum30 += r.Rating
			count30++
		}
	}

	snapshot.Overall = average(sumAll, snapshot.TotalReviews)
	snapshot.Last7Days = average(sum7, count7)
	snapshot.Last30Days = average(sum30, count30)

	for app, stat := range snapshot.ByApp {
		stat.Average = average(appSums[app], stat.Count)
		snapshot.ByApp[app] = stat
	}

	return snapshot
}

// DailySentiment buckets review counts per calendar day over the trailing
// window into positive (>=4), neutral (=3) and negative (<=2) classes. Every
// day in the window is initialized to zero before accumulation, so days
// without reviews are explicit zeros — required for gap-free charting.
func DailySentiment(reviews []models.Review, now time.Time, days int) []models.DailySentiment {
	if days <= 0 {
		days = 14
	}

	buckets := make([]models.DailySentiment, days)
	index := make(map[string]int, days)

	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -(days - 1 - i)).Format("2006-01-02")
		buckets[i] = models.DailySentiment{Date: day}
		index[day] = i
	}

	for _, r := range reviews {
		if _, ok := r.ParsedDate(); !ok {
			continue
		}
		i, ok := index[r.Date]
		if !ok {
			continue
		}

		switch {
		case r.Rating >= positiveMinRating:
			buckets[i].Positive++
		case r.Rating <= negativeMaxRating:
			buckets[i].Negative++
		default:
			buckets[i].Neutral++
		}
	}

	return buckets
}

// average rounds to two decimals and maps an empty window to 0.0.
func average(sum, count int) float64 {
	if count == 0 {
		return 0.0
	}
	return math.Round(float64(sum)/float64(count)*100) / 100
}
