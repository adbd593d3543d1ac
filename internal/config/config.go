package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppTarget identifies one monitored application across both storefronts.
type AppTarget struct {
	Name       string
	AppStoreID string // numeric Apple App Store id
	PlayID     string // Android package name
	Country    string
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Execution mode
	RunOnce        bool   // perform a single batch run and exit
	ReportSchedule string // "daily" or "weekly"

	// Data files
	DataDir      string
	HistoryFile  string
	AnalysisFile string
	ReportFile   string
	HistoryLimit int // retention bound for the review history

	// Azure Storage (optional; local disk is used when unset)
	StorageAccount   string
	StorageContainer string

	// Monitored applications
	Apps []AppTarget

	// Ingestion
	ReviewCount int // reviews fetched per app per storefront

	// Trend windows
	TrendDays int // daily sentiment window

	// Topic extraction
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	TopicCount     int
	MinTextLength  int
	SampleLimit    int

	// Notification configuration
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Alerting
	NegativeAlertRatio float64 // share of new <=2-star reviews that triggers an alert
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		RunOnce:        getBoolEnv("RUN_ONCE", false),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),

		DataDir:      getEnv("DATA_DIR", "data"),
		HistoryFile:  getEnv("HISTORY_FILE", "reviews.json"),
		AnalysisFile: getEnv("ANALYSIS_FILE", "analysis.json"),
		ReportFile:   getEnv("REPORT_FILE", "report.json"),
		HistoryLimit: getIntEnv("HISTORY_LIMIT", 1000),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "feedback"),

		Apps: parseApps(getEnv("APPS", "")),

		ReviewCount: getIntEnv("REVIEW_COUNT", 25),
		TrendDays:   getIntEnv("TREND_DAYS", 14),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
		TopicCount:     getIntEnv("TOPIC_COUNT", 5),
		MinTextLength:  getIntEnv("MIN_TEXT_LENGTH", 30),
		SampleLimit:    getIntEnv("SAMPLE_LIMIT", 120),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		NegativeAlertRatio: getFloatEnv("NEGATIVE_ALERT_RATIO", 0.5),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// AIEnabled reports whether the remote analysis capability is configured.
// An absent key degrades the resolver to its cache/heuristic tiers.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if len(c.Apps) == 0 {
		return fmt.Errorf("at least one application target must be configured (APPS)")
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// parseApps decodes APPS entries of the form "name|iosID|androidID|country",
// separated by commas. An empty value falls back to the default targets.
func parseApps(value string) []AppTarget {
	if value == "" {
		return defaultApps()
	}

	var apps []AppTarget
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "|")
		if len(parts) < 3 || parts[0] == "" {
			continue
		}
		app := AppTarget{
			Name:       parts[0],
			AppStoreID: parts[1],
			PlayID:     parts[2],
			Country:    "de",
		}
		if len(parts) > 3 && parts[3] != "" {
			app.Country = parts[3]
		}
		apps = append(apps, app)
	}

	if len(apps) == 0 {
		return defaultApps()
	}
	return apps
}

func defaultApps() []AppTarget {
	return []AppTarget{
		{Name: "Nordkurier", AppStoreID: "1250964862", PlayID: "de.nordkurier.live", Country: "de"},
		{Name: "Schwäbische", AppStoreID: "432491155", PlayID: "de.schwaebische.epaper", Country: "de"},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
