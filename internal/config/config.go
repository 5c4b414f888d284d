// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends.
const (
	BackendAuto     = "auto"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Ledger storage
	DataBackend     string
	SQLiteDBPath    string
	BigQueryProject string
	BigQueryDataset string

	// Model
	GeminiAPIKey  string
	GeminiModel   string
	MaxToolRounds int
	TurnTimeout   time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report exports
	ReportBucket string
	ReportDir    string

	// Notion mirror (optional)
	NotionToken      string
	NotionDatabaseID string

	// Demo data
	DemoSeed           uint64
	ResetCheckInterval time.Duration
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:     strings.ToLower(getEnv("DATA_BACKEND", BackendAuto)),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "ledger"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxToolRounds: getEnvInt("AGENT_MAX_TOOL_ROUNDS", 8),
		TurnTimeout:   getEnvDuration("AGENT_TURN_TIMEOUT", 60*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ReportBucket: getEnv("REPORT_BUCKET", ""),
		ReportDir:    getEnv("REPORT_DIR", "./data/reports"),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		DemoSeed:           uint64(getEnvInt("DEMO_SEED", 0)),
		ResetCheckInterval: getEnvDuration("RESET_CHECK_INTERVAL", 10*time.Minute),
	}
}

// Backend resolves "auto" to a concrete backend: BigQuery when a project is
// configured, SQLite otherwise.
func (c *Config) Backend() string {
	if c.DataBackend != BackendAuto {
		return c.DataBackend
	}
	if c.BigQueryProject != "" {
		return BackendBigQuery
	}
	return BackendSQLite
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendAuto, BackendMemory, BackendSQLite, BackendBigQuery:
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of auto, memory, sqlite, bigquery", c.DataBackend))
	}
	if c.Backend() == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.Backend() == BackendBigQuery {
		if c.BigQueryProject == "" {
			errs = append(errs, "BIGQUERY_PROJECT is required when using bigquery backend")
		}
		if c.BigQueryDataset == "" {
			errs = append(errs, "BIGQUERY_DATASET is required when using bigquery backend")
		}
	}

	if c.MaxToolRounds < 1 || c.MaxToolRounds > 32 {
		errs = append(errs, fmt.Sprintf("invalid max tool rounds %d: must be between 1 and 32", c.MaxToolRounds))
	}
	if c.TurnTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid turn timeout %v: must be at least 1 second", c.TurnTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.NotionToken == "") != (c.NotionDatabaseID == "") {
		errs = append(errs, "NOTION_TOKEN and NOTION_DATABASE_ID must be set together")
	}

	if c.ResetCheckInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid reset check interval %v: must be at least 1 second", c.ResetCheckInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
