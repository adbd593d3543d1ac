package trends

import (
	"testing"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func dayString(offset int) string {
	return testNow.AddDate(0, 0, offset).Format("2006-01-02")
}

func TestCompute_WindowedAverages(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "android", App: "Nordkurier", Rating: 1, Date: dayString(-10)},
	}

	snapshot := Compute(reviews, testNow)

	// The 10-day-old review is outside the 7-day window but inside the
	// 30-day window.
	assert.Equal(t, 5.0, snapshot.Last7Days)
	assert.Equal(t, 3.0, snapshot.Last30Days)
	assert.Equal(t, 3.0, snapshot.Overall)
	assert.Equal(t, 2, snapshot.TotalReviews)
}

func TestCompute_EmptyWindowsReportZero(t *testing.T) {
	snapshot := Compute(nil, testNow)

	assert.Equal(t, 0.0, snapshot.Overall)
	assert.Equal(t, 0.0, snapshot.Last7Days)
	assert.Equal(t, 0.0, snapshot.Last30Days)
	assert.Equal(t, 0, snapshot.TotalReviews)
}

func TestCompute_OldHistoryStillCountsOverall(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 4, Date: dayString(-90)},
		{Store: "ios", App: "Nordkurier", Rating: 2, Date: dayString(-60)},
	}

	snapshot := Compute(reviews, testNow)

	assert.Equal(t, 3.0, snapshot.Overall)
	assert.Equal(t, 0.0, snapshot.Last7Days)
	assert.Equal(t, 0.0, snapshot.Last30Days)
}

func TestCompute_RoundsToTwoDecimals(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 4, Date: dayString(0)},
	}

	snapshot := Compute(reviews, testNow)

	// 14/3 = 4.666..., rounded half away from zero.
	assert.Equal(t, 4.67, snapshot.Overall)
}

func TestCompute_PerStoreAndPerAppBreakdown(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "ios", App: "Schwäbische", Rating: 3, Date: dayString(-1)},
		{Store: "android", App: "Nordkurier", Rating: 1, Date: dayString(-2)},
	}

	snapshot := Compute(reviews, testNow)

	assert.Equal(t, 2, snapshot.ByStore["ios"])
	assert.Equal(t, 1, snapshot.ByStore["android"])

	nordkurier := snapshot.ByApp["Nordkurier"]
	assert.Equal(t, 2, nordkurier.Count)
	assert.Equal(t, 3.0, nordkurier.Average)
}

func TestCompute_SkipsUnparseableDates(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 1, Date: "irgendwann"},
	}

	snapshot := Compute(reviews, testNow)

	assert.Equal(t, 1, snapshot.TotalReviews)
	assert.Equal(t, 5.0, snapshot.Overall)
}

func TestDailySentiment_GapFreeWindow(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 5, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 3, Date: dayString(0)},
		{Store: "android", App: "Nordkurier", Rating: 1, Date: dayString(-3)},
	}

	daily := DailySentiment(reviews, testNow, 14)
	require.Len(t, daily, 14)

	// Oldest day first, today last.
	assert.Equal(t, dayString(-13), daily[0].Date)
	assert.Equal(t, dayString(0), daily[13].Date)

	today := daily[13]
	assert.Equal(t, 1, today.Positive)
	assert.Equal(t, 1, today.Neutral)
	assert.Equal(t, 0, today.Negative)

	assert.Equal(t, 1, daily[10].Negative)

	// Days without reviews carry explicit zeros.
	empty := daily[5]
	assert.Equal(t, 0, empty.Positive+empty.Neutral+empty.Negative)
}

func TestDailySentiment_ClassBoundaries(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 4, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 3, Date: dayString(0)},
		{Store: "ios", App: "Nordkurier", Rating: 2, Date: dayString(0)},
	}

	daily := DailySentiment(reviews, testNow, 14)
	today := daily[13]

	assert.Equal(t, 1, today.Positive)
	assert.Equal(t, 1, today.Neutral)
	assert.Equal(t, 1, today.Negative)
}

func TestDailySentiment_IgnoresReviewsOutsideWindow(t *testing.T) {
	reviews := []models.Review{
		{Store: "ios", App: "Nordkurier", Rating: 1, Date: dayString(-20)},
	}

	daily := DailySentiment(reviews, testNow, 14)
	for _, bucket := range daily {
		assert.Equal(t, 0, bucket.Positive+bucket.Neutral+bucket.Negative)
	}
}
