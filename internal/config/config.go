package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Redis (payment reference deduplication)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	Port string
	Env  string

	// Ledger policy
	Ledger LedgerConfig

	// Overdue sweep
	SweepInterval time.Duration

	// Payment reference claims expire after this long
	PaymentRefTTL time.Duration
}

// LedgerConfig holds the ledger engine policy knobs
type LedgerConfig struct {
	LargePaymentThreshold   decimal.Decimal
	AllowPartialTargeted    bool
	CarryUnallocatedForward bool
	DueDateMode             string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	threshold, err := decimal.NewFromString(getEnv("LARGE_PAYMENT_THRESHOLD", "0"))
	if err != nil {
		return nil, fmt.Errorf("LARGE_PAYMENT_THRESHOLD must be a decimal: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be a duration: %w", err)
	}

	refTTL, err := time.ParseDuration(getEnv("PAYMENT_REF_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("PAYMENT_REF_TTL must be a duration: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		Ledger: LedgerConfig{
			LargePaymentThreshold:   threshold,
			AllowPartialTargeted:    getEnvBool("ALLOW_PARTIAL_TARGETED", false),
			CarryUnallocatedForward: getEnvBool("CARRY_UNALLOCATED_FORWARD", false),
			DueDateMode:             getEnv("DUE_DATE_MODE", "calendar_month"),
		},
		SweepInterval: sweepInterval,
		PaymentRefTTL: refTTL,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Ledger.DueDateMode != "calendar_month" && c.Ledger.DueDateMode != "fixed_30_days" {
		return fmt.Errorf("DUE_DATE_MODE must be calendar_month or fixed_30_days")
	}
	if c.Ledger.LargePaymentThreshold.IsNegative() {
		return fmt.Errorf("LARGE_PAYMENT_THRESHOLD must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
