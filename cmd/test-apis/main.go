package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/sources"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔍 App Feedback Bot - Storefront Connectivity Test")
	fmt.Println("=================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("\n📡 Testing storefront feeds...")
	fmt.Println(strings.Repeat("-", 40))

	feeds := []sources.Source{
		sources.NewAppStoreSource(),
		sources.NewPlayStoreSource(),
	}

	for _, app := range cfg.Apps {
		fmt.Printf("\n📱 %s\n", app.Name)
		for _, source := range feeds {
			testSource(ctx, source, app, cfg.ReviewCount)
		}
	}

	fmt.Println("\n✅ Storefront connectivity test completed!")
}

func testSource(ctx context.Context, source sources.Source, app config.AppTarget, count int) {
	fmt.Printf("🔸 Testing %s... ", source.GetName())

	if !source.IsEnabled(app) {
		fmt.Printf("⚠️  DISABLED (no store id configured)\n")
		return
	}

	reviews, err := source.FetchReviews(ctx, app, count)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d reviews found)\n", len(reviews))

	if len(reviews) > 0 {
		sample := reviews[0].Text
		if len(sample) > 80 {
			sample = sample[:80] + "..."
		}
		fmt.Printf("   📝 Sample [%d★]: \"%s\"\n", reviews[0].Rating, sample)
	}
}
