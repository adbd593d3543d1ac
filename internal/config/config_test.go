package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "daily", cfg.ReportSchedule)
	assert.Equal(t, "reviews.json", cfg.HistoryFile)
	assert.Equal(t, "analysis.json", cfg.AnalysisFile)
	assert.Equal(t, "report.json", cfg.ReportFile)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.Equal(t, 14, cfg.TrendDays)
	assert.Equal(t, 5, cfg.TopicCount)
	assert.Equal(t, 30, cfg.MinTextLength)
	assert.Equal(t, 0.5, cfg.NegativeAlertRatio)

	// Without APPS the default newspaper targets apply.
	require.Len(t, cfg.Apps, 2)
	assert.Equal(t, "Nordkurier", cfg.Apps[0].Name)
	assert.Equal(t, "de", cfg.Apps[0].Country)
}

func TestLoad_RejectsInvalidSchedule(t *testing.T) {
	t.Setenv("REPORT_SCHEDULE", "hourly")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EmailRequiresSMTP(t *testing.T) {
	t.Setenv("NOTIFICATION_EMAIL", "team@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP")
}

func TestLoad_EmailWithSMTP(t *testing.T) {
	t.Setenv("NOTIFICATION_EMAIL", "team@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "bot@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoad_RejectsNonPositiveHistoryLimit(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseApps(t *testing.T) {
	apps := parseApps("Nordkurier|1250964862|de.nordkurier.live|de, Schwäbische|432491155|de.schwaebische.epaper")
	require.Len(t, apps, 2)

	assert.Equal(t, AppTarget{
		Name:       "Nordkurier",
		AppStoreID: "1250964862",
		PlayID:     "de.nordkurier.live",
		Country:    "de",
	}, apps[0])

	// The country falls back to "de" when omitted.
	assert.Equal(t, "de", apps[1].Country)
	assert.Equal(t, "432491155", apps[1].AppStoreID)
}

func TestParseApps_EmptyStoreIDsAllowed(t *testing.T) {
	apps := parseApps("WebOnly||de.webonly.app")
	require.Len(t, apps, 1)
	assert.Empty(t, apps[0].AppStoreID)
	assert.Equal(t, "de.webonly.app", apps[0].PlayID)
}

func TestParseApps_MalformedEntriesFallBackToDefaults(t *testing.T) {
	assert.Len(t, parseApps(""), 2)
	assert.Len(t, parseApps("nur-ein-name"), 2)
}

func TestAIEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AIEnabled())

	cfg.GeminiAPIKey = "key"
	assert.True(t, cfg.AIEnabled())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "wert")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_FLOAT", "0.75")
	t.Setenv("TEST_BAD_INT", "keine-zahl")

	assert.Equal(t, "wert", getEnv("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET", "fallback"))
	assert.True(t, getBoolEnv("TEST_BOOL", false))
	assert.Equal(t, 42, getIntEnv("TEST_INT", 0))
	assert.Equal(t, 0.75, getFloatEnv("TEST_FLOAT", 0))
	assert.Equal(t, 7, getIntEnv("TEST_BAD_INT", 7))
}
