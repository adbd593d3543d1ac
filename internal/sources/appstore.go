package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/history"
	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const appStoreFeedURL = "https://itunes.apple.com/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/json"

// appStorePageSize is how many entries Apple returns per feed page.
const appStorePageSize = 50

// AppStoreSource reads the public customer-reviews RSS feed of the Apple
// App Store.
type AppStoreSource struct {
	client *resty.Client
}

// feed wire format: every scalar hides behind a {"label": ...} wrapper.
type appStoreFeed struct {
	Feed struct {
		Entry []appStoreEntry `json:"entry"`
	} `json:"feed"`
}

type appStoreEntry struct {
	Author struct {
		Name appStoreLabel `json:"name"`
	} `json:"author"`
	Title   appStoreLabel `json:"title"`
	Content appStoreLabel `json:"content"`
	Rating  appStoreLabel `json:"im:rating"`
	Version appStoreLabel `json:"im:version"`
	Updated appStoreLabel `json:"updated"`
}

type appStoreLabel struct {
	Label string `json:"label"`
}

// NewAppStoreSource creates a new App Store feed source
func NewAppStoreSource() *AppStoreSource {
	return &AppStoreSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "AppFeedback-Bot/1.0"),
	}
}

func (a *AppStoreSource) GetName() string {
	return "ios"
}

func (a *AppStoreSource) IsEnabled(app config.AppTarget) bool {
	return app.AppStoreID != ""
}

// FetchReviews pages through the feed newest-first until count reviews are
// collected or the feed runs dry.
func (a *AppStoreSource) FetchReviews(ctx context.Context, app config.AppTarget, count int) ([]models.Review, error) {
	var reviews []models.Review

	pages := (count + appStorePageSize - 1) / appStorePageSize
	for page := 1; page <= pages && len(reviews) < count; page++ {
		select {
		case <-ctx.Done():
			return reviews, ctx.Err()
		default:
		}

		entries, err := a.fetchPage(ctx, app, page)
		if err != nil {
			if len(reviews) > 0 {
				logrus.Warnf("App Store page %d for %s failed, keeping %d reviews: %v", page, app.Name, len(reviews), err)
				break
			}
			return nil, err
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			review, err := a.normalize(entry, app)
			if err != nil {
				logrus.Debugf("Skipping App Store entry for %s: %v", app.Name, err)
				continue
			}
			reviews = append(reviews, review)
			if len(reviews) >= count {
				break
			}
		}
	}

	return reviews, nil
}

func (a *AppStoreSource) fetchPage(ctx context.Context, app config.AppTarget, page int) ([]appStoreEntry, error) {
	url := fmt.Sprintf(appStoreFeedURL, app.Country, page, app.AppStoreID)

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch App Store feed for %s: %w", app.Name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("App Store feed for %s returned status %d", app.Name, resp.StatusCode())
	}

	var feed appStoreFeed
	if err := json.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse App Store feed for %s: %w", app.Name, err)
	}

	return feed.Feed.Entry, nil
}

// normalize maps a feed entry into the canonical review shape.
func (a *AppStoreSource) normalize(entry appStoreEntry, app config.AppTarget) (models.Review, error) {
	rating := 0
	if _, err := fmt.Sscanf(entry.Rating.Label, "%d", &rating); err != nil {
		return models.Review{}, fmt.Errorf("entry has no rating")
	}

	return history.Normalize(models.Review{
		Store:   "ios",
		App:     app.Name,
		Rating:  rating,
		Title:   entry.Title.Label,
		Text:    entry.Content.Label,
		Author:  entry.Author.Name.Label,
		Version: entry.Version.Label,
		Date:    entry.Updated.Label,
	})
}
