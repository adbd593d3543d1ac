package insights

import (
	"encoding/json"
	"fmt"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

// Cache is the single-slot store for the last good AI analysis. It is read
// as the fallback seed before each remote call and replaced wholesale after
// each success; fallback paths never write it.
type Cache struct {
	backend  storage.StorageInterface
	filename string
}

// NewCache creates an analysis cache on the given backend.
func NewCache(backend storage.StorageInterface, filename string) *Cache {
	return &Cache{backend: backend, filename: filename}
}

// Get returns the cached analysis, or nil when the slot is empty or the
// file does not decode. Corruption is logged and treated as a miss.
func (c *Cache) Get() *models.Insights {
	data, err := c.backend.Retrieve(c.filename)
	if err != nil {
		logrus.Debugf("No cached analysis available: %v", err)
		return nil
	}

	var cached models.Insights
	if err := json.Unmarshal(data, &cached); err != nil {
		logrus.Errorf("Cached analysis is corrupt, treating as empty: %v", err)
		return nil
	}

	if cached.Summary == "" && len(cached.Topics) == 0 {
		return nil
	}

	cached.Origin = models.InsightOriginCache
	return &cached
}

// Put replaces the cache slot with a new baseline.
func (c *Cache) Put(insights *models.Insights) error {
	data, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis cache: %w", err)
	}

	if err := c.backend.Store(c.filename, data); err != nil {
		return fmt.Errorf("failed to persist analysis cache: %w", err)
	}

	logrus.Info("Updated analysis cache with new AI baseline")
	return nil
}
