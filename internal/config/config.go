package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Pipeline identity and window configuration
	PipelineID     string
	LookbackHours  int    // fetch window when no prior run state exists
	MaxRecords     int    // cap on messages fetched per run
	RunSchedule    string // cron expression for scheduled runs
	HighConfidence float64
	PriceTargetCap int

	// Database configuration
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBMaxConns int

	// Azure Storage configuration (run state documents + report archive)
	StorageAccount   string
	StorageContainer string
	LocalStoragePath string // filesystem fallback when no account is set

	// Reddit API credentials
	RedditClientID     string
	RedditClientSecret string
	Subreddits         []string

	// Ticker universe
	Tickers          []string
	AmbiguousTickers []string // only matched with a $ prefix

	// Notification configuration
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		PipelineID:     getEnv("PIPELINE_ID", "stock-etl"),
		LookbackHours:  getIntEnv("LOOKBACK_HOURS", 24),
		MaxRecords:     getIntEnv("MAX_RECORDS", 5000),
		RunSchedule:    getEnv("RUN_SCHEDULE", "0 15 * * * *"),
		HighConfidence: getFloatEnv("HIGH_CONFIDENCE_THRESHOLD", 0.7),
		PriceTargetCap: getIntEnv("PRICE_TARGET_CAP", 20),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getIntEnv("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "stockpulse"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBSSLMode:  getEnv("DB_SSLMODE", "prefer"),
		DBMaxConns: getIntEnv("DB_MAX_CONNS", 10),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "stock-etl"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "data"),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		Subreddits: getSliceEnv("SUBREDDITS", []string{
			"wallstreetbets",
			"stocks",
			"investing",
			"StockMarket",
			"options",
		}),

		Tickers: getSliceEnv("TICKERS", defaultTickers),
		AmbiguousTickers: getSliceEnv("AMBIGUOUS_TICKERS", []string{
			"A", "ALL", "ARE", "BE", "BIG", "BY", "CAN", "DD", "EV", "FOR",
			"GO", "HAS", "IT", "NOW", "ON", "ONE", "OR", "OUT", "REAL", "SEE",
			"SO", "TELL", "WELL", "YOLO",
		}),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// defaultTickers are the symbols tracked when TICKERS is not set.
var defaultTickers = []string{
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "META", "TSLA", "NVDA", "AMD", "INTC",
	"GME", "AMC", "PLTR", "TLRY", "BB", "NOK", "SPY", "QQQ", "ARKK", "BABA",
	"NIO", "COIN", "HOOD", "SOFI", "LCID", "RIVN", "SNAP", "ABNB", "RBLX", "UBER",
	"DIA", "IWM", "VTI",
}

func (c *Config) validate() error {
	if c.PipelineID == "" {
		return fmt.Errorf("PIPELINE_ID must not be empty")
	}

	if c.LookbackHours < 1 {
		return fmt.Errorf("LOOKBACK_HOURS must be >= 1")
	}

	if c.MaxRecords < 1 {
		return fmt.Errorf("MAX_RECORDS must be >= 1")
	}

	if c.HighConfidence < 0 || c.HighConfidence > 1 {
		return fmt.Errorf("HIGH_CONFIDENCE_THRESHOLD must be in [0, 1]")
	}

	if c.PriceTargetCap < 1 {
		return fmt.Errorf("PRICE_TARGET_CAP must be >= 1")
	}

	if len(c.Tickers) == 0 {
		return fmt.Errorf("at least one ticker must be configured")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
