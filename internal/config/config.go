// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the config file nor the environment
// sets a value.
const (
	DefaultPort           = 8080
	DefaultCacheTTL       = 30 * time.Second
	DefaultConcurrency    = 8
	DefaultPageSize       = 100
	DefaultMaxPages       = 100
	DefaultAmountDecimals = 18
	DefaultGovSchedule    = "@every 1m"
)

// Config holds application configuration.
type Config struct {
	// Indexer API
	IndexerBaseURL string `yaml:"indexer_base_url"`
	IndexerAPIKey  string `yaml:"indexer_api_key"`

	// HTTP server
	Port        int    `yaml:"port"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// Storage
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"`

	// Snapshot engine
	AmountDecimals int           `yaml:"amount_decimals"`
	Concurrency    int           `yaml:"concurrency"`
	PageSize       int           `yaml:"page_size"`
	MaxPages       int           `yaml:"max_pages"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`

	// Governance watcher
	GovSchedule   string `yaml:"gov_schedule"`
	GovWebhookURL string `yaml:"gov_webhook_url"`
	GovStartBlock int64  `yaml:"gov_start_block"`
}

// Load reads configuration from an optional YAML file, then overlays
// environment variables on top. A .env file in the working directory is
// loaded first if present. path may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:           DefaultPort,
		MetricsAddr:    ":9090",
		LogLevel:       "info",
		AmountDecimals: DefaultAmountDecimals,
		Concurrency:    DefaultConcurrency,
		PageSize:       DefaultPageSize,
		MaxPages:       DefaultMaxPages,
		CacheTTL:       DefaultCacheTTL,
		GovSchedule:    DefaultGovSchedule,
	}
}

// applyEnv overlays environment variables; env values win over the file.
func (c *Config) applyEnv() {
	c.IndexerBaseURL = getEnv("INDEXER_BASE_URL", c.IndexerBaseURL)
	c.IndexerAPIKey = getEnv("INDEXER_API_KEY", c.IndexerAPIKey)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvAsBool("LOG_PRETTY", c.LogPretty)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.ClickhouseDSN = getEnv("CLICKHOUSE_DSN", c.ClickhouseDSN)
	c.UseMemory = getEnvAsBool("USE_MEMORY", c.UseMemory)
	c.AmountDecimals = getEnvAsInt("AMOUNT_DECIMALS", c.AmountDecimals)
	c.Concurrency = getEnvAsInt("SNAPSHOT_CONCURRENCY", c.Concurrency)
	c.PageSize = getEnvAsInt("DISCOVERY_PAGE_SIZE", c.PageSize)
	c.MaxPages = getEnvAsInt("DISCOVERY_MAX_PAGES", c.MaxPages)
	c.CacheTTL = getEnvAsDuration("CACHE_TTL", c.CacheTTL)
	c.GovSchedule = getEnv("GOV_SCHEDULE", c.GovSchedule)
	c.GovWebhookURL = getEnv("GOV_WEBHOOK_URL", c.GovWebhookURL)
	c.GovStartBlock = getEnvAsInt64("GOV_START_BLOCK", c.GovStartBlock)
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.IndexerBaseURL == "" {
		return fmt.Errorf("indexer base URL is required (INDEXER_BASE_URL)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.AmountDecimals < 0 {
		return fmt.Errorf("amount decimals must be non-negative, got %d", c.AmountDecimals)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
