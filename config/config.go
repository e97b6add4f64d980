package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost  string
	HTTPPort  string
	MySQLDSN  string
	JWTSecret string

	// ProbeTimeout bounds a single connectivity test against an external
	// integration. SyncTimeout bounds a full sync run.
	ProbeTimeout time.Duration
	SyncTimeout  time.Duration

	RateLimits RateLimitDefaults
	Breaker    BreakerPolicy

	// LogQueryLimit is applied when a caller omits a limit on activity log
	// queries; LogQueryMaxLimit caps whatever the caller asks for.
	LogQueryLimit    int
	LogQueryMaxLimit int

	LogLevel  string
	LogFormat string
}

// RateLimitDefaults are the ceilings applied to a new API key when the
// creation request does not specify its own.
type RateLimitDefaults struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// BreakerPolicy configures the circuit breaker wrapped around outbound
// probe and sync calls.
type BreakerPolicy struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	cfg := &Config{
		HTTPHost:     getEnv("HTTP_HOST", ""),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		MySQLDSN:     mysqlDSN,
		JWTSecret:    jwtSecret,
		ProbeTimeout: getDurationEnv("PROBE_TIMEOUT_SECONDS", 10*time.Second),
		SyncTimeout:  getDurationEnv("SYNC_TIMEOUT_SECONDS", 120*time.Second),
		RateLimits: RateLimitDefaults{
			PerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 60),
			PerHour:   getIntEnv("RATE_LIMIT_PER_HOUR", 1000),
			PerDay:    getIntEnv("RATE_LIMIT_PER_DAY", 10000),
		},
		Breaker: BreakerPolicy{
			MaxRequests:      uint32(getIntEnv("BREAKER_MAX_REQUESTS", 3)),
			Interval:         getDurationEnv("BREAKER_INTERVAL_SECONDS", 60*time.Second),
			Timeout:          getDurationEnv("BREAKER_TIMEOUT_SECONDS", 30*time.Second),
			MinRequests:      uint32(getIntEnv("BREAKER_MIN_REQUESTS", 5)),
			FailureThreshold: 0.5,
		},
		LogQueryLimit:    getIntEnv("LOG_QUERY_LIMIT", 100),
		LogQueryMaxLimit: getIntEnv("LOG_QUERY_MAX_LIMIT", 500),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.RateLimits.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (d RateLimitDefaults) Validate() error {
	if d.PerMinute <= 0 || d.PerHour <= 0 || d.PerDay <= 0 {
		return fmt.Errorf("default rate limits must be positive, got %d/%d/%d",
			d.PerMinute, d.PerHour, d.PerDay)
	}
	return nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
