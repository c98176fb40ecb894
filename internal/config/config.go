package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the GeoCast application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Delivery  DeliveryConfig
	Targeting TargetingConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MaxConns          int
	MinConns          int
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
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
	PoolSize int
}

type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	SendRPS   float64
	SendBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// DeliveryConfig controls the delivery simulator.
type DeliveryConfig struct {
	// SuccessRate is the probability a simulated send succeeds
	SuccessRate float64
	Concurrency int
	Timeout     time.Duration
}

// TargetingConfig controls targeting previews.
type TargetingConfig struct {
	SampleSize int
}

// DashboardConfig controls dashboard queries.
type DashboardConfig struct {
	RecentLimit int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("GEOCAST_HTTP_ADDR", ":8080"),
			Env:             getEnv("GEOCAST_ENV", "development"),
			ShutdownTimeout: getDurationEnv("GEOCAST_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("GEOCAST_DB_HOST", "localhost"),
			Port:     getIntEnv("GEOCAST_DB_PORT", 5432),
			User:     getEnv("GEOCAST_DB_USER", "geocast"),
			Password: getEnv("GEOCAST_DB_PASSWORD", "geocast_secret"),
			DBName:   getEnv("GEOCAST_DB_NAME", "geocast"),
			SSLMode:  getEnv("GEOCAST_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("GEOCAST_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("GEOCAST_DB_MIN_CONNS", 5),

			MaxConnLifetime:   getDurationEnv("GEOCAST_DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime:   getDurationEnv("GEOCAST_DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			HealthCheckPeriod: getDurationEnv("GEOCAST_DB_HEALTH_CHECK_PERIOD", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("GEOCAST_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("GEOCAST_REDIS_PASSWORD", ""),
			DB:       getIntEnv("GEOCAST_REDIS_DB", 0),
			PoolSize: getIntEnv("GEOCAST_REDIS_POOL_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getBoolEnv("GEOCAST_RATE_LIMIT_ENABLED", true),
			RPS:       getFloatEnv("GEOCAST_RATE_LIMIT_RPS", 100),
			Burst:     getIntEnv("GEOCAST_RATE_LIMIT_BURST", 20),
			SendRPS:   getFloatEnv("GEOCAST_RATE_LIMIT_SEND_RPS", 5),
			SendBurst: getIntEnv("GEOCAST_RATE_LIMIT_SEND_BURST", 2),
		},
		Log: LogConfig{
			Level:  getEnv("GEOCAST_LOG_LEVEL", "info"),
			Format: getEnv("GEOCAST_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("GEOCAST_METRICS_ENABLED", true),
			Path:    getEnv("GEOCAST_METRICS_PATH", "/metrics"),
		},
		Delivery: DeliveryConfig{
			SuccessRate: getFloatEnv("GEOCAST_DELIVERY_SUCCESS_RATE", 0.9),
			Concurrency: getIntEnv("GEOCAST_DELIVERY_CONCURRENCY", 8),
			Timeout:     getDurationEnv("GEOCAST_DELIVERY_TIMEOUT", 2*time.Minute),
		},
		Targeting: TargetingConfig{
			SampleSize: getIntEnv("GEOCAST_TARGETING_SAMPLE_SIZE", 5),
		},
		Dashboard: DashboardConfig{
			RecentLimit: getIntEnv("GEOCAST_DASHBOARD_RECENT_LIMIT", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c *Config) Validate() error {
	if c.Delivery.SuccessRate < 0 || c.Delivery.SuccessRate > 1 {
		return fmt.Errorf("GEOCAST_DELIVERY_SUCCESS_RATE must be in [0,1], got %v", c.Delivery.SuccessRate)
	}
	if c.Delivery.Concurrency < 1 {
		return fmt.Errorf("GEOCAST_DELIVERY_CONCURRENCY must be at least 1, got %d", c.Delivery.Concurrency)
	}
	if c.Targeting.SampleSize < 0 {
		return fmt.Errorf("GEOCAST_TARGETING_SAMPLE_SIZE must not be negative, got %d", c.Targeting.SampleSize)
	}
	if c.Dashboard.RecentLimit < 1 {
		return fmt.Errorf("GEOCAST_DASHBOARD_RECENT_LIMIT must be at least 1, got %d", c.Dashboard.RecentLimit)
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
