package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/history"
	"github.com/feedwatch/appfeedback-bot/internal/insights"
	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/feedwatch/appfeedback-bot/internal/notifications"
	"github.com/feedwatch/appfeedback-bot/internal/sources"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
	"github.com/feedwatch/appfeedback-bot/internal/trends"
	"github.com/sirupsen/logrus"
)

// Service orchestrates one batch run: fetch reviews from both storefronts,
// merge them into the deduplicated history, compute trends, resolve
// insights and hand the report to storage and notifications.
type Service struct {
	config              *config.Config
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	resolver            *insights.Resolver
	history             *history.Store
	sources             []sources.Source
	metrics             *Metrics
	mu                  sync.RWMutex
}

// Metrics holds monitoring metrics
type Metrics struct {
	TotalReviews       int            `json:"total_reviews"`
	NewReviews         int            `json:"new_reviews"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ResolverTier       string         `json:"resolver_tier"`
	ErrorCount         int            `json:"error_count"`
}

// NewService creates a new monitoring service
func NewService(cfg *config.Config, backend storage.StorageInterface, notificationService notifications.NotificationInterface, resolver *insights.Resolver) *Service {
	return &Service{
		config:              cfg,
		storage:             backend,
		notificationService: notificationService,
		resolver:            resolver,
		history:             history.NewStore(backend, cfg.HistoryFile, cfg.HistoryLimit),
		sources: []sources.Source{
			sources.NewAppStoreSource(),
			sources.NewPlayStoreSource(),
		},
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

type fetchResult struct {
	source  string
	reviews []models.Review
}

// RunMonitoring performs one full batch run.
func (s *Service) RunMonitoring() error {
	start := time.Now()
	logrus.Info("Starting feedback run")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	fresh, errorCount := s.fetchAllReviews(ctx)
	logrus.Infof("Collected %d reviews from all sources", len(fresh))

	// Merge and persist before any analysis so dedup progress survives a
	// failing topic extraction.
	existing := s.history.Load()
	merged, added := s.history.Merge(existing, fresh)
	logrus.Infof("Merged %d fresh reviews, %d genuinely new", len(fresh), len(added))

	if err := s.history.Save(merged); err != nil {
		logrus.Errorf("Failed to save review history: %v", err)
		return err
	}

	sorted := history.ExportSorted(merged)
	now := time.Now()

	trend := trends.Compute(sorted, now)
	daily := trends.DailySentiment(sorted, now, s.config.TrendDays)
	resolved := s.resolver.Resolve(ctx, sorted)

	report := s.buildReport(sorted, added, trend, daily, resolved, now)

	if err := s.storeReport(report); err != nil {
		logrus.Errorf("Failed to store report: %v", err)
		errorCount++
	}

	if err := s.notificationService.SendReport(report); err != nil {
		logrus.Errorf("Failed to send report: %v", err)
		errorCount++
	}

	if alert := s.negativeSpikeAlert(added); alert != nil {
		if err := s.notificationService.SendAlert(alert); err != nil {
			logrus.Errorf("Failed to send alert: %v", err)
			errorCount++
		}
	}

	s.updateMetrics(report, resolved.Origin, time.Since(start), errorCount)

	logrus.Infof("Feedback run completed in %v (%d new reviews, insights via %s)",
		time.Since(start), len(added), resolved.Origin)
	return nil
}

// fetchAllReviews queries every storefront for every monitored app
// concurrently. Each fetch is independent; a failing source is logged and
// contributes zero records, and the merge step is order-independent so the
// collection order does not matter.
func (s *Service) fetchAllReviews(ctx context.Context) ([]models.Review, int) {
	pairs := 0
	for _, src := range s.sources {
		for _, app := range s.config.Apps {
			if src.IsEnabled(app) {
				pairs++
			}
		}
	}

	var wg sync.WaitGroup
	resultsChan := make(chan fetchResult, pairs)
	errorsChan := make(chan error, pairs)

	for _, src := range s.sources {
		for _, app := range s.config.Apps {
			if !src.IsEnabled(app) {
				logrus.Debugf("Skipping %s for %s (no id configured)", src.GetName(), app.Name)
				continue
			}

			wg.Add(1)
			go func(src sources.Source, app config.AppTarget) {
				defer wg.Done()

				logrus.Infof("Fetching %s reviews for %s", src.GetName(), app.Name)
				reviews, err := src.FetchReviews(ctx, app, s.config.ReviewCount)
				if err != nil {
					logrus.Errorf("Error fetching %s reviews for %s: %v", src.GetName(), app.Name, err)
					errorsChan <- err
					return
				}

				logrus.Infof("Found %d %s reviews for %s", len(reviews), src.GetName(), app.Name)
				resultsChan <- fetchResult{source: src.GetName(), reviews: reviews}
			}(src, app)
		}
	}

	go func() {
		wg.Wait()
		close(resultsChan)
		close(errorsChan)
	}()

	var all []models.Review
	for result := range resultsChan {
		all = append(all, result.reviews...)
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	return all, errorCount
}

func (s *Service) buildReport(sorted, added []models.Review, trend *models.TrendSnapshot, daily []models.DailySentiment, resolved *models.Insights, now time.Time) *models.Report {
	return &models.Report{
		GeneratedAt:  now,
		Period:       s.config.ReportSchedule,
		NewReviews:   len(added),
		TotalReviews: len(sorted),
		Trend:        trend,
		Daily:        daily,
		Insights:     resolved,
		Reviews:      sorted,
	}
}

// storeReport persists the run output as plain data for the rendering
// collaborator.
func (s *Service) storeReport(report *models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return s.storage.Store(s.config.ReportFile, data)
}

// negativeSpikeAlert returns an alert when the configured share of a run's
// genuinely new reviews is negative. Nothing is returned for small batches;
// two bad reviews out of three are noise, not a spike.
func (s *Service) negativeSpikeAlert(added []models.Review) *models.Alert {
	if len(added) < 5 || s.config.NegativeAlertRatio <= 0 {
		return nil
	}

	negative := 0
	for _, r := range added {
		if r.Rating <= 2 {
			negative++
		}
	}

	ratio := float64(negative) / float64(len(added))
	if ratio < s.config.NegativeAlertRatio {
		return nil
	}

	return &models.Alert{
		Type:      "urgent",
		Title:     "Negative review spike",
		Message:   fmt.Sprintf("%d of %d new reviews rate 2 stars or less", negative, len(added)),
		CreatedAt: time.Now(),
	}
}

func (s *Service) updateMetrics(report *models.Report, tier string, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalReviews = report.TotalReviews
	s.metrics.NewReviews = report.NewReviews
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ResolverTier = tier
	s.metrics.ErrorCount = errorCount

	s.metrics.SourceMetrics = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)

	for _, r := range report.Reviews {
		s.metrics.SourceMetrics[r.Store]++
		switch {
		case r.Rating >= 4:
			s.metrics.SentimentBreakdown["positive"]++
		case r.Rating <= 2:
			s.metrics.SentimentBreakdown["negative"]++
		default:
			s.metrics.SentimentBreakdown["neutral"]++
		}
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

// GenerateTestReport runs the merge/trend/insight pipeline over provided
// sample reviews without touching live sources, for offline testing.
func (s *Service) GenerateTestReport(sample []models.Review) *models.Report {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	existing := s.history.Load()
	merged, added := s.history.Merge(existing, sample)
	sorted := history.ExportSorted(merged)
	now := time.Now()

	trend := trends.Compute(sorted, now)
	daily := trends.DailySentiment(sorted, now, s.config.TrendDays)
	resolved := s.resolver.Resolve(ctx, sorted)

	return s.buildReport(sorted, added, trend, daily, resolved, now)
}
