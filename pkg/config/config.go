package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment                string
	ServerPort                 int
	LogLevel                   string
	DatabaseHost               string
	DatabasePort               int
	DatabaseUser               string
	DatabasePassword           string
	DatabaseName               string
	DatabaseSSLMode            string
	RedisURL                   string
	JWTSecret                  string
	TokenTTLMinutes            int
	RequestTimeoutSeconds      int
	LoanPeriodDays             int
	OverdueScanIntervalMinutes int
	BulkMaxItems               int
	DefaultPageSize            int
	MaxPageSize                int
	CacheTTLSeconds            int
	CORSAllowedOrigins         []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTL, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	requestTimeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS: %w", err)
	}

	loanPeriod, err := strconv.Atoi(getEnv("LOAN_PERIOD_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOAN_PERIOD_DAYS: %w", err)
	}
	if loanPeriod < 1 {
		return nil, fmt.Errorf("LOAN_PERIOD_DAYS must be at least 1, got %d", loanPeriod)
	}

	overdueInterval, err := strconv.Atoi(getEnv("OVERDUE_SCAN_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERDUE_SCAN_INTERVAL_MINUTES: %w", err)
	}

	bulkMax, err := strconv.Atoi(getEnv("BULK_MAX_ITEMS", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_MAX_ITEMS: %w", err)
	}

	defaultPageSize, err := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %w", err)
	}

	maxPageSize, err := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PAGE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}

	cfg := &Config{
		Environment:                getEnv("ENVIRONMENT", "development"),
		ServerPort:                 port,
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		DatabaseHost:               getEnv("DB_HOST", "localhost"),
		DatabasePort:               dbPort,
		DatabaseUser:               getEnv("DB_USER", "libris"),
		DatabasePassword:           getEnv("DB_PASSWORD", "dev"),
		DatabaseName:               getEnv("DB_NAME", "libris"),
		DatabaseSSLMode:            getEnv("DB_SSLMODE", "disable"),
		RedisURL:                   getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:                  os.Getenv("JWT_SECRET"),
		TokenTTLMinutes:            tokenTTL,
		RequestTimeoutSeconds:      requestTimeout,
		LoanPeriodDays:             loanPeriod,
		OverdueScanIntervalMinutes: overdueInterval,
		BulkMaxItems:               bulkMax,
		DefaultPageSize:            defaultPageSize,
		MaxPageSize:                maxPageSize,
		CacheTTLSeconds:            cacheTTL,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
