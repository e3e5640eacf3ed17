// Package config provides configuration management for the Tezos activity reporter.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/tezos-reporter/internal/types"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Indexer   IndexerConfig
	Report    ReportConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// IndexerConfig holds TzKT indexer client configuration
type IndexerConfig struct {
	BaseURL           string
	RequestsPerSecond float64 // TzKT free tier allows 10 req/s
	PageSize          int
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	RequestTimeout    time.Duration
}

// ReportConfig holds report engine configuration
type ReportConfig struct {
	// FeeRate is the marketplace commission rate used to derive the
	// fee-owner estimated volume (earned / FeeRate)
	FeeRate decimal.Decimal
	// ZeroFillDays inserts zero rows for transaction-free days so charts
	// render a continuous daily axis
	ZeroFillDays bool
	// CacheTTL bounds how long a fetched raw transaction set stays reusable
	// for the matching CSV download
	CacheTTL time.Duration
}

// RedisConfig holds Redis configuration for the export cache
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// AliasEntry is one row of the static alias table: a short name users can
// select, the chain address it stands for, and the role tag driving
// role-specific formulas.
type AliasEntry struct {
	Name    string
	Address string
	Role    types.AddressRole
	Label   string
}

// Aliases is the static, versioned table of known contract/account addresses.
// The fee-owner entry is the address whose incoming transfers are the
// marketplace commission cut.
var Aliases = []AliasEntry{
	{Name: "bank", Address: "tz1cY5tTfFb5c4Q9VyJ895y6eLk1ohXXqwVD", Role: types.RoleGeneric, Label: "Treasury account"},
	{Name: "mp_owner", Address: "tz1bu1WeCaPdKSbdAVcBkcUdnksTYa6uGWWF", Role: types.RoleFeeOwner, Label: "Marketplace fee owner"},
	{Name: "marketplace", Address: "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn", Role: types.RoleGeneric, Label: "Marketplace contract"},
}

// LookupAlias returns the alias entry for a name, if present
func LookupAlias(name string) (AliasEntry, bool) {
	for _, a := range Aliases {
		if a.Name == name {
			return a, true
		}
	}
	return AliasEntry{}, false
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	feeRate, err := decimal.NewFromString(getEnv("REPORT_FEE_RATE", "0.03"))
	if err != nil || feeRate.Sign() <= 0 {
		return nil, fmt.Errorf("invalid REPORT_FEE_RATE: %q", getEnv("REPORT_FEE_RATE", "0.03"))
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Indexer: IndexerConfig{
			BaseURL:           getEnv("TZKT_API_URL", "https://api.tzkt.io/v1"),
			RequestsPerSecond: getEnvAsFloat("TZKT_REQUESTS_PER_SECOND", 10),
			PageSize:          getEnvAsInt("TZKT_PAGE_SIZE", 1000),
			MaxRetries:        getEnvAsInt("TZKT_MAX_RETRIES", 5),
			InitialRetryDelay: getEnvAsDuration("TZKT_INITIAL_RETRY_DELAY", 1*time.Second),
			MaxRetryDelay:     getEnvAsDuration("TZKT_MAX_RETRY_DELAY", 30*time.Second),
			RequestTimeout:    getEnvAsDuration("TZKT_REQUEST_TIMEOUT", 30*time.Second),
		},
		Report: ReportConfig{
			FeeRate:      feeRate,
			ZeroFillDays: getEnvAsBool("REPORT_ZERO_FILL_DAYS", false),
			CacheTTL:     getEnvAsDuration("REPORT_CACHE_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
