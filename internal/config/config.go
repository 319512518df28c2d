package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the spend metrics service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Ingest    IngestConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Cache     CacheConfig
	Intent    IntentConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IngestConfig configures the scheduled CSV ingestion job. The schedule is a
// deployment knob, not a correctness invariant. An empty SourceURL disables
// ingestion entirely (query-only deployment).
type IngestConfig struct {
	SourceURL         string
	Schedule          string
	RunOnStart        bool
	FetchTimeout      time.Duration
	RunTimeout        time.Duration
	DefaultSourceName string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled    bool
	RPS        float64
	Burst      int
	AdminRPS   float64
	AdminBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures the Prometheus endpoint, served on its own
// listener so the API keeps /metrics for KPI queries.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// CacheConfig configures the Redis-backed KPI result cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// IntentConfig configures the natural-language question endpoint. Provider
// is an opaque deployment setting with no effect on mapping semantics.
type IntentConfig struct {
	Enabled  bool
	Provider string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("SPENDMETRICS_HTTP_ADDR", ":8080"),
			Env:             getEnv("SPENDMETRICS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("SPENDMETRICS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("SPENDMETRICS_DB_HOST", "localhost"),
			Port:     getIntEnv("SPENDMETRICS_DB_PORT", 5432),
			User:     getEnv("SPENDMETRICS_DB_USER", "ads"),
			Password: getEnv("SPENDMETRICS_DB_PASSWORD", "ads123"),
			DBName:   getEnv("SPENDMETRICS_DB_NAME", "adsdb"),
			SSLMode:  getEnv("SPENDMETRICS_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("SPENDMETRICS_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("SPENDMETRICS_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("SPENDMETRICS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("SPENDMETRICS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("SPENDMETRICS_REDIS_DB", 0),
		},
		Ingest: IngestConfig{
			SourceURL:         getEnv("SPENDMETRICS_INGEST_URL", ""),
			Schedule:          getEnv("SPENDMETRICS_INGEST_SCHEDULE", "@every 5m"),
			RunOnStart:        getBoolEnv("SPENDMETRICS_INGEST_RUN_ON_START", true),
			FetchTimeout:      getDurationEnv("SPENDMETRICS_INGEST_FETCH_TIMEOUT", 30*time.Second),
			RunTimeout:        getDurationEnv("SPENDMETRICS_INGEST_RUN_TIMEOUT", 4*time.Minute),
			DefaultSourceName: getEnv("SPENDMETRICS_INGEST_SOURCE_NAME", "ads_spend.csv"),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("SPENDMETRICS_AUTH_ENABLED", false),
			MasterKey: getEnv("SPENDMETRICS_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("SPENDMETRICS_AUTH_SKIP_PATHS", []string{"/health"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBoolEnv("SPENDMETRICS_RATE_LIMIT_ENABLED", true),
			RPS:        getFloatEnv("SPENDMETRICS_RATE_LIMIT_RPS", 100),
			Burst:      getIntEnv("SPENDMETRICS_RATE_LIMIT_BURST", 20),
			AdminRPS:   getFloatEnv("SPENDMETRICS_RATE_LIMIT_ADMIN_RPS", 1),
			AdminBurst: getIntEnv("SPENDMETRICS_RATE_LIMIT_ADMIN_BURST", 2),
		},
		Log: LogConfig{
			Level:  getEnv("SPENDMETRICS_LOG_LEVEL", "info"),
			Format: getEnv("SPENDMETRICS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("SPENDMETRICS_METRICS_ENABLED", true),
			Addr:    getEnv("SPENDMETRICS_METRICS_ADDR", ":9090"),
		},
		Cache: CacheConfig{
			Enabled: getBoolEnv("SPENDMETRICS_CACHE_ENABLED", true),
			TTL:     getDurationEnv("SPENDMETRICS_CACHE_TTL", time.Minute),
		},
		Intent: IntentConfig{
			Enabled:  getBoolEnv("SPENDMETRICS_INTENT_ENABLED", true),
			Provider: getEnv("SPENDMETRICS_INTENT_PROVIDER", "rules"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("SPENDMETRICS_API_KEY_MASTER is required when auth is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
