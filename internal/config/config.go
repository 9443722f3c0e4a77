// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config carries every tunable the service reads at startup.
type Config struct {
	Environment string
	HTTPAddr    string

	// Database
	DBDriver        string // postgres | sqlite
	DatabaseDSN     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxIdle   time.Duration
	StoreTimeout    time.Duration
	MovementRetries int

	// Alerting
	AlertCacheTTL    time.Duration
	SettingsCacheTTL time.Duration

	// Rate limiting for mutating routes
	RateLimit       int
	RateLimitWindow time.Duration

	// Observability
	LogLevel         string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingProtocol  string
	TraceSampleRatio float64

	Bootstrap Bootstrap
}

// Bootstrap controls startup seeding.
type Bootstrap struct {
	SeedDefaultSettings bool
	SeedDemoItems       bool
}

// IsProduction reports whether the service runs with production guards enabled.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getString("ENVIRONMENT", "development"),
		HTTPAddr:    getString("HTTP_ADDR", ":8080"),

		DBDriver:        getString("DB_DRIVER", "postgres"),
		DatabaseDSN:     getString("DATABASE_DSN", ""),
		DBMaxOpenConns:  getInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:  getInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdle:   getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		StoreTimeout:    getDuration("STORE_TIMEOUT", 3*time.Second),
		MovementRetries: getInt("MOVEMENT_RETRIES", 5),

		AlertCacheTTL:    getDuration("ALERT_CACHE_TTL", 5*time.Second),
		SettingsCacheTTL: getDuration("SETTINGS_CACHE_TTL", 10*time.Second),

		RateLimit:       getInt("RATE_LIMIT", 120),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel:         getString("LOG_LEVEL", "info"),
		TracingEnabled:   getBool("TRACING_ENABLED", false),
		TracingEndpoint:  getString("TRACING_ENDPOINT", ""),
		TracingProtocol:  getString("TRACING_PROTOCOL", "grpc"),
		TraceSampleRatio: getFloat("TRACE_SAMPLE_RATIO", 0.1),

		Bootstrap: Bootstrap{
			SeedDefaultSettings: getBool("SEED_DEFAULT_SETTINGS", true),
			SeedDemoItems:       getBool("SEED_DEMO_ITEMS", false),
		},
	}

	return cfg, nil
}

// Module provides Config through fx.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
