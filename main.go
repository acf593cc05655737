// package main provides the entry point for the vintel-backend microservice,
// wiring the feed adapters, the run orchestrator and the HTTP API together.
package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/api"
	"github.com/vulnwatch/vintel-backend/internal/feeds"
	"github.com/vulnwatch/vintel-backend/internal/kpi"
	"github.com/vulnwatch/vintel-backend/internal/runner"
	"github.com/vulnwatch/vintel-backend/internal/services"
)

func main() {
	// Initialize database connection
	db := database.InitializeDatabase()
	logger := database.InitLogger()

	cfg := loadServiceConfig()
	historyDepth := envInt("KPI_HISTORY_DEPTH", cfg.HistoryDepth)
	historyGap := envDuration("KPI_HISTORY_GAP", cfg.historyGap())
	concurrency := envInt("FETCH_CONCURRENCY", cfg.FetchConcurrency)

	// Warm the KPI history from the snapshots of previous runs
	service := &services.RunService{DB: db}
	history := kpi.NewHistory("severity", historyDepth)
	if stored, err := service.LoadHistory(context.Background(), historyDepth); err != nil {
		log.Printf("WARNING: Failed to load KPI history: %v", err)
	} else {
		history = kpi.FromModel(stored, historyDepth)
	}

	// Feed adapters
	certfr := feeds.NewCERTFRSource(logger)
	cveSources := []feeds.Source{
		feeds.NewNVDSource(logger, nvdOptions(cfg)...),
		feeds.NewOSVSource(logger),
	}

	r := runner.New(certfr, cveSources, history, historyGap, logger)
	r.SetConcurrency(concurrency)

	app := api.NewFiberApp(db, r)

	port := database.GetEnvDefault("MS_PORT", cfg.Port)

	// Start server
	log.Printf("Starting server on port %s", port)
	log.Printf("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func nvdOptions(cfg serviceConfig) []feeds.NVDOption {
	var opts []feeds.NVDOption
	if key := database.GetEnvDefault("NVD_API_KEY", cfg.NVDAPIKey); key != "" {
		opts = append(opts, feeds.WithNVDAPIKey(key))
	}
	return opts
}

func envInt(key string, defVal int) int {
	raw := database.GetEnvDefault(key, "")
	if raw == "" {
		return defVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("WARNING: Ignoring invalid %s=%q", key, raw)
		return defVal
	}
	return val
}

func envDuration(key string, defVal time.Duration) time.Duration {
	raw := database.GetEnvDefault(key, "")
	if raw == "" {
		return defVal
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("WARNING: Ignoring invalid %s=%q", key, raw)
		return defVal
	}
	return val
}
