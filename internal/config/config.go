package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Ledger persistence
	LedgerBackend string
	DataFilePath  string
	SQLiteDBPath  string

	// AMQP, optional
	AMQPURL          string
	AMQPExchange     string
	AMQPInboundQueue string
	AMQPOutboundKey  string
	AMQPEventsKey    string

	// Worker
	WorkerConcurrency int

	// Conversation
	LocaleFile string
	DedupeTTL  time.Duration
	DedupeSize int

	// Google Sheets mirror, optional
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LedgerBackend: getEnv("LEDGER_BACKEND", "json"),
		DataFilePath:  getEnv("DATA_FILE_PATH", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "ledgerbot"),
		AMQPInboundQueue: getEnv("AMQP_INBOUND_QUEUE", "ledgerbot.inbound"),
		AMQPOutboundKey:  getEnv("AMQP_OUTBOUND_KEY", "ledgerbot.outbound"),
		AMQPEventsKey:    getEnv("AMQP_EVENTS_KEY", "ledgerbot.events"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 8),

		LocaleFile: getEnv("LOCALE_FILE", ""),
		DedupeTTL:  getEnvDuration("DEDUPE_TTL", 10*time.Minute),
		DedupeSize: getEnvInt("DEDUPE_SIZE", 10000),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	if cfg.DataFilePath == "" {
		cfg.DataFilePath = DefaultDataFile(cfg.LedgerBackend)
	}
	return cfg
}

// DefaultDataFile is the snapshot location used when DATA_FILE_PATH is unset.
func DefaultDataFile(backend string) string {
	if backend == "yaml" {
		return "./data/users_data.yaml"
	}
	return "./data/users_data.json"
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	// Validate ledger backend
	validBackends := []string{"json", "yaml", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	switch c.LedgerBackend {
	case "json", "yaml":
		if c.DataFilePath == "" {
			errors = append(errors, "data file path cannot be empty when using a file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPInboundQueue == "" {
			errors = append(errors, "AMQP inbound queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPOutboundKey == "" {
			errors = append(errors, "AMQP outbound routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 256 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 256", c.WorkerConcurrency))
	}

	if c.LocaleFile != "" {
		if _, err := os.Stat(c.LocaleFile); err != nil {
			errors = append(errors, fmt.Sprintf("locale file is not readable: %s", c.LocaleFile))
		}
	}

	if c.DedupeTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid dedupe TTL %v: must be at least 1 second", c.DedupeTTL))
	}
	if c.DedupeSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid dedupe size %d: must be at least 1", c.DedupeSize))
	}

	if c.SheetsEnabled() && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
