package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/models"
)

// dateLayouts are the date formats the storefront feeds are known to emit.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
}

// Normalize turns a raw source payload into the canonical record shape:
// trimmed text, rating clamped to 1-5, lowercase store and the observed date
// reformatted to 2006-01-02. A record whose date cannot be parsed is
// rejected here so every stored record has a usable date.
func Normalize(r models.Review) (models.Review, error) {
	r.Store = strings.ToLower(strings.TrimSpace(r.Store))
	r.App = strings.TrimSpace(r.App)
	r.Title = strings.TrimSpace(r.Title)
	r.Text = strings.TrimSpace(r.Text)

	if r.App == "" {
		return models.Review{}, fmt.Errorf("review has no app name")
	}

	if r.Rating < 1 {
		r.Rating = 1
	}
	if r.Rating > 5 {
		r.Rating = 5
	}

	date, err := parseDate(r.Date)
	if err != nil {
		return models.Review{}, err
	}
	r.Date = date.Format("2006-01-02")

	return r, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("review has no date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable review date %q", value)
}
