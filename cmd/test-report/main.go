package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/insights"
	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/feedwatch/appfeedback-bot/internal/monitoring"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
)

// TestNotificationService prints reports to the terminal and saves them as JSON
type TestNotificationService struct{}

func (t *TestNotificationService) SendReport(report *models.Report) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 APP FEEDBACK REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 New Reviews: %d (total %d)\n", report.NewReviews, report.TotalReviews)

	if report.Trend != nil {
		fmt.Println("\n⭐ Ratings:")
		fmt.Printf("   • Overall:      %.2f\n", report.Trend.Overall)
		fmt.Printf("   • Last 7 days:  %.2f\n", report.Trend.Last7Days)
		fmt.Printf("   • Last 30 days: %.2f\n", report.Trend.Last30Days)
		for store, count := range report.Trend.ByStore {
			fmt.Printf("   • %-12s %d reviews\n", store+":", count)
		}
	}

	if report.Insights != nil {
		fmt.Printf("\n🤖 Analysis (%s tier):\n", report.Insights.Origin)
		fmt.Printf("   %s\n", report.Insights.Summary)
		if len(report.Insights.Topics) > 0 {
			fmt.Printf("   Topics: %s\n", strings.Join(report.Insights.Topics, ", "))
		}
		for _, b := range report.Insights.Buzzwords {
			fmt.Printf("   • %-25s %d\n", b.Term, b.Count)
		}
	}

	if err := t.saveReportToFile(report); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TestNotificationService) SendAlert(alert *models.Alert) error {
	fmt.Println("\n🚨 ALERT")
	fmt.Printf("Type: %s\n", alert.Type)
	fmt.Printf("Message: %s\n", alert.Message)
	return nil
}

func (t *TestNotificationService) saveReportToFile(report *models.Report) error {
	timestamp := report.GeneratedAt.Format("2006-01-02_15-04-05")
	filename := filepath.Join("test_output", fmt.Sprintf("feedback_report_%s.json", timestamp))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Report saved to: %s\n", filename)
	return nil
}

func main() {
	fmt.Println("🤖 App Feedback Bot - Test Report Generator")
	fmt.Println("==========================================")

	cfg := &config.Config{
		ReportSchedule: "daily",
		HistoryFile:    "reviews.json",
		AnalysisFile:   "analysis.json",
		ReportFile:     "report.json",
		HistoryLimit:   1000,
		TrendDays:      14,
		TopicCount:     5,
		MinTextLength:  30,
		SampleLimit:    120,
		Apps: []config.AppTarget{
			{Name: "Nordkurier", AppStoreID: "1250964862", PlayID: "de.nordkurier.live", Country: "de"},
		},
	}

	backend, err := storage.NewLocalStorage("test_output")
	if err != nil {
		fmt.Printf("❌ Error creating storage: %v\n", err)
		os.Exit(1)
	}

	notifier := &TestNotificationService{}

	// No AI client: the resolver exercises the cache/heuristic tiers.
	cache := insights.NewCache(backend, cfg.AnalysisFile)
	resolver := insights.NewResolver(nil, nil, cache, cfg.TopicCount, cfg.SampleLimit, cfg.MinTextLength)

	service := monitoring.NewService(cfg, backend, notifier, resolver)

	today := time.Now().Format("2006-01-02")
	lastWeek := time.Now().AddDate(0, 0, -6).Format("2006-01-02")

	sampleReviews := []models.Review{
		{
			Store:  "ios",
			App:    "Nordkurier",
			Rating: 5,
			Text:   "Die App funktioniert hervorragend, besonders die neuen Push-Benachrichtigungen für regionale Nachrichten sind sehr hilfreich.",
			Date:   today,
		},
		{
			Store:  "android",
			App:    "Nordkurier",
			Rating: 1,
			Text:   "Seit dem letzten Update stürzt die App beim Öffnen eines Artikels sofort ab. Bitte dringend beheben!",
			Date:   today,
		},
		{
			Store:  "ios",
			App:    "Nordkurier",
			Rating: 2,
			Text:   "Viel zu viel Werbung zwischen den Artikeln, das Lesen macht so keinen Spaß mehr.",
			Date:   lastWeek,
		},
		{
			Store:  "android",
			App:    "Nordkurier",
			Rating: 4,
			Text:   "Gute Übersicht und schnelle Ladezeiten, nur die Schriftgröße könnte einstellbar sein.",
			Date:   lastWeek,
		},
		{
			Store:  "ios",
			App:    "Nordkurier",
			Rating: 3,
			Text:   "Im Großen und Ganzen in Ordnung, aber der ePaper-Bereich braucht manchmal sehr lange zum Laden.",
			Date:   lastWeek,
		},
	}

	fmt.Printf("\n📊 Generating report with %d sample reviews...\n", len(sampleReviews))

	report := service.GenerateTestReport(sampleReviews)

	if err := notifier.SendReport(report); err != nil {
		fmt.Printf("❌ Error sending report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Test report generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Check the 'test_output' directory for saved JSON report")
	fmt.Println("   • Run 'go test ./...' for the full test suite")
	fmt.Println("   • Configure GEMINI_API_KEY and run the bot with 'go run cmd/bot/main.go'")
}
