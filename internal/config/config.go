package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=gcdl port=5432 sslmode=disable"

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	JWTTTL            time.Duration
	CORSOrigins       string
	RedisURL          string
	LogLevel          string
	LogFormat         string
	Environment       string
	LowStockThreshold decimal.Decimal
	OTLPEndpoint      string

	// Warnings collects non-fatal findings for the caller to log once a
	// logger exists.
	Warnings []string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:  getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		RedisURL:     getEnv("REDIS_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "8h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be a positive duration")
	}
	cfg.JWTTTL = ttl

	threshold, err := decimal.NewFromString(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || threshold.IsNegative() {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD must be a non-negative number")
	}
	cfg.LowStockThreshold = threshold

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		return nil, fmt.Errorf("HTTP_PORT must be numeric, got %q", cfg.HTTPPort)
	}

	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN uses the local default; set it for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS uses the local default; set it for production")
	}

	return cfg, nil
}

// AllowedOrigins normalizes the comma separated CORS list.
func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
