package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Scan pipeline
	Scan ScanConfig

	// Universe
	Universe UniverseConfig

	// Quote source
	Quote QuoteConfig

	// Report
	Report ReportConfig

	// LINE delivery
	Line LineConfig

	// State store
	StorePath string

	// Strategy file (profiles, gates, calendar)
	StrategyPath string

	// Trigger authorization
	TriggerToken string

	// Logging
	LogLevel  string
	LogFormat string

	// Timezone for all trading-calendar decisions
	Timezone string
}

// ScanConfig holds poll-cycle configuration
type ScanConfig struct {
	Workers       int           // concurrent fetch workers
	CycleDeadline time.Duration // soft deadline for one cycle
	CronSpec      string        // schedule for automatic cycles
}

// UniverseConfig holds universe resolution configuration
type UniverseConfig struct {
	Directive string // "ALL" or comma-separated codes
	TWSEURL   string // TWSE ISIN listing page
	TPExURL   string // TPEx ISIN listing page
	TLSVerify bool   // the ISIN hosts often fail TLS verification
}

// QuoteConfig holds quote source configuration
type QuoteConfig struct {
	BaseURL      string
	WindowDays   int           // trailing daily bars to request
	FetchTimeout time.Duration // per-instrument timeout
	RatePerSec   int           // quote requests per second
}

// ReportConfig holds pagination limits
type ReportConfig struct {
	MaxLines int // max rows+headers per page
	MaxChars int // max characters per page
}

// LineConfig holds LINE Messaging API configuration
type LineConfig struct {
	ChannelToken string
	To           string // push destination (user or group ID), doubles as feed ID
	Enabled      bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Scan: ScanConfig{
			Workers:       getEnvAsInt("SCAN_WORKERS", 8),
			CycleDeadline: getEnvAsDuration("SCAN_CYCLE_DEADLINE", "8m"),
			CronSpec:      getEnv("SCAN_CRON", "0 0/10 9-13 * * MON-FRI"),
		},

		Universe: UniverseConfig{
			Directive: getEnv("WATCHLIST", "ALL"),
			TWSEURL:   getEnv("TWSE_ISIN_URL", "https://isin.twse.com.tw/isin/C_public.jsp?strMode=2"),
			TPExURL:   getEnv("TPEX_ISIN_URL", "https://isin.tpex.org.tw/isin/C_public.jsp?strMode=4"),
			TLSVerify: getEnvAsBool("ISIN_TLS_VERIFY", false),
		},

		Quote: QuoteConfig{
			BaseURL:      getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
			WindowDays:   getEnvAsInt("QUOTE_WINDOW_DAYS", 90),
			FetchTimeout: getEnvAsDuration("QUOTE_FETCH_TIMEOUT", "15s"),
			RatePerSec:   getEnvAsInt("QUOTE_RATE_PER_SEC", 5),
		},

		Report: ReportConfig{
			MaxLines: getEnvAsInt("REPORT_MAX_LINES", 30),
			MaxChars: getEnvAsInt("REPORT_MAX_CHARS", 4800),
		},

		Line: LineConfig{
			ChannelToken: getEnv("LINE_CHANNEL_TOKEN", ""),
			To:           getEnv("LINE_USER_ID", ""),
			Enabled:      getEnvAsBool("LINE_ENABLED", true),
		},

		StorePath:    getEnv("STORE_PATH", "data/twscan.db"),
		StrategyPath: getEnv("STRATEGY_PATH", "config/strategy.yaml"),
		TriggerToken: getEnv("TRIGGER_TOKEN", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Timezone: getEnv("TIMEZONE", "Asia/Taipei"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1")
	}

	if c.Report.MaxLines < 2 || c.Report.MaxChars < 64 {
		return fmt.Errorf("report limits too small: lines=%d chars=%d", c.Report.MaxLines, c.Report.MaxChars)
	}

	if c.Line.Enabled && c.Line.ChannelToken == "" {
		return fmt.Errorf("LINE_CHANNEL_TOKEN is required when LINE_ENABLED=true")
	}

	if c.Line.Enabled && c.Line.To == "" {
		return fmt.Errorf("LINE_USER_ID is required when LINE_ENABLED=true")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// Location returns the configured trading timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		// validate() already checked it parses
		return time.UTC
	}
	return loc
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
