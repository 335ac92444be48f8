package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	StoreDriver        string
	Database           DatabaseConfig
	RedisURL           string
	TeamCacheTTL       time.Duration
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int
	LoginRatePerMinute int
	StatsInterval      time.Duration
	CORSAllowedOrigins []string
	OTLPEndpoint       string
	TraceSampleRatio   float64
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getInt("TEAM_CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getInt("TOKEN_TTL_MINUTES", 24*60)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	loginRate, err := getInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	statsInterval, err := getInt("STATS_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	sampleRatio := 1.0
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		if sampleRatio, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid TRACE_SAMPLE_RATIO: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", "teamhub"),
			Password:     getEnv("DB_PASSWORD", "dev"),
			Name:         getEnv("DB_NAME", "teamhub"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
		},
		RedisURL:           os.Getenv("REDIS_URL"),
		TeamCacheTTL:       time.Duration(cacheTTL) * time.Second,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           time.Duration(tokenTTL) * time.Minute,
		RateLimitPerMinute: rateLimit,
		LoginRatePerMinute: loginRate,
		StatsInterval:      time.Duration(statsInterval) * time.Second,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio: sampleRatio,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoreDriver != StorePostgres && c.StoreDriver != StoreMemory {
		return fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", c.StoreDriver, StorePostgres, StoreMemory)
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
