package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/insights"
	"github.com/feedwatch/appfeedback-bot/internal/monitoring"
	"github.com/feedwatch/appfeedback-bot/internal/notifications"
	"github.com/feedwatch/appfeedback-bot/internal/scheduler"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting App Feedback Bot")

	backend, err := newStorageBackend(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	notificationService := notifications.NewService(cfg)
	resolver := newResolver(cfg, backend)
	monitoringService := monitoring.NewService(cfg, backend, notificationService, resolver)

	if cfg.RunOnce {
		// Single batch invocation: ingest, analyze, report, exit.
		if err := monitoringService.RunMonitoring(); err != nil {
			logrus.Fatalf("Feedback run failed: %v", err)
		}
		return
	}

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// HTTP server for health checks and manual triggers
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(monitoringService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(monitoringService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// newStorageBackend picks Azure Blob Storage when an account is configured,
// the local data directory otherwise.
func newStorageBackend(cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	}
	return storage.NewLocalStorage(cfg.DataDir)
}

// newResolver wires the tiered insight resolver. Missing AI credentials
// leave the remote tier out; the resolver then serves from cache or local
// heuristics instead of crashing.
func newResolver(cfg *config.Config, backend storage.StorageInterface) *insights.Resolver {
	cache := insights.NewCache(backend, cfg.AnalysisFile)

	if !cfg.AIEnabled() {
		logrus.Warn("No GEMINI_API_KEY configured, AI analysis disabled")
		return insights.NewResolver(nil, nil, cache, cfg.TopicCount, cfg.SampleLimit, cfg.MinTextLength)
	}

	client, err := insights.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel)
	if err != nil {
		logrus.Errorf("Failed to create Gemini client, AI analysis disabled: %v", err)
		return insights.NewResolver(nil, nil, cache, cfg.TopicCount, cfg.SampleLimit, cfg.MinTextLength)
	}

	engine := insights.NewEngine(client, cfg.MinTextLength)
	return insights.NewResolver(client, engine, cache, cfg.TopicCount, cfg.SampleLimit, cfg.MinTextLength)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := monitoringService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func triggerHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := monitoringService.RunMonitoring(); err != nil {
				logrus.Errorf("Manual feedback run failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Feedback run triggered successfully"}`))
	}
}
