package sources

import (
	"context"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/models"
)

// Source interface defines the contract for all storefront review feeds
type Source interface {
	GetName() string
	FetchReviews(ctx context.Context, app config.AppTarget, count int) ([]models.Review, error)
	IsEnabled(app config.AppTarget) bool
}
