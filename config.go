package main

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/util"
)

// serviceConfig holds the service settings. Values come from an optional
// YAML file pointed at by CONFIG_FILE; environment variables override the
// file entry by entry.
type serviceConfig struct {
	Port             string `yaml:"port"`
	HistoryDepth     int    `yaml:"kpi_history_depth"`
	HistoryGap       string `yaml:"kpi_history_gap"`
	FetchConcurrency int    `yaml:"fetch_concurrency"`
	NVDAPIKey        string `yaml:"nvd_api_key"`
}

// loadServiceConfig reads the YAML config file when CONFIG_FILE is set. A
// missing or malformed file is fatal since the operator asked for it.
func loadServiceConfig() serviceConfig {
	cfg := serviceConfig{
		Port:             "3000",
		HistoryDepth:     30,
		HistoryGap:       "1h",
		FetchConcurrency: 4,
	}

	path := database.GetEnvDefault("CONFIG_FILE", "")
	if path == "" {
		return cfg
	}
	if !util.FileExists(path) {
		log.Fatalf("Config file %s does not exist", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config file %s: %v", path, err)
	}
	return cfg
}

// historyGap parses the configured gap, falling back to the default on a
// malformed value.
func (c serviceConfig) historyGap() time.Duration {
	gap, err := time.ParseDuration(c.HistoryGap)
	if err != nil || gap < 0 {
		log.Printf("WARNING: Ignoring invalid kpi_history_gap=%q", c.HistoryGap)
		return time.Hour
	}
	return gap
}
