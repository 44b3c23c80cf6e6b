package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the environment-derived settings shared by the API and
// processor binaries.
type Config struct {
	HTTPAddr           string
	APIKey             string
	RawRecordsTable    string
	ProcessingLogTable string
	PostgresDSN        string
	PollInterval       time.Duration
	BatchSize          int
	WriteTimeout       time.Duration
	MetricsEnabled     bool
}

const (
	defaultHTTPAddr     = ":8080"
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 10
	defaultWriteTimeout = 30 * time.Second
)

// Load reads configuration from the environment. Malformed values are
// startup errors rather than silent defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:           getenv("HTTP_ADDR", defaultHTTPAddr),
		APIKey:             os.Getenv("API_KEY"),
		RawRecordsTable:    getenv("RAW_RECORDS_TABLE", "prismo-raw-records"),
		ProcessingLogTable: getenv("PROCESSING_LOG_TABLE", "prismo-processing-log"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		PollInterval:       defaultPollInterval,
		BatchSize:          defaultBatchSize,
		WriteTimeout:       defaultWriteTimeout,
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.MetricsEnabled = b
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WRITE_TIMEOUT %q: %w", v, err)
		}
		cfg.WriteTimeout = d
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BATCH_SIZE %q", v)
		}
		cfg.BatchSize = n
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
