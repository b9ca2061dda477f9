package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Gateway settings supplied by the processor's merchant onboarding.
	MerchantCode string
	HashSecret   string
	PayBaseURL   string
	ReturnURL    string
	IPNURL       string
	Locale       string

	TxnRefPrefix    string
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MerchantCode:       k.String("PAY_TMN_CODE"),
		HashSecret:         k.String("PAY_HASH_SECRET"),
		PayBaseURL:         k.String("PAY_BASE_URL"),
		ReturnURL:          k.String("PAY_RETURN_URL"),
		IPNURL:             k.String("PAY_IPN_URL"),
		Locale:             valueOrDefault(k.String("PAY_LOCALE"), "vn"),
		TxnRefPrefix:       valueOrDefault(k.String("PAY_TXN_REF_PREFIX"), "ORDER_"),
		RateLimitWindow:    parseDuration(k.String("PAY_RATELIMIT_WINDOW"), "1m"),
		RateLimitMax:       int(k.Int64("PAY_RATELIMIT_MAX")),
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 60
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	// Missing merchant credentials must stop the process before any request
	// can be built or verified.
	if cfg.MerchantCode == "" {
		return nil, errors.New("PAY_TMN_CODE is required")
	}
	if cfg.HashSecret == "" {
		return nil, errors.New("PAY_HASH_SECRET is required")
	}
	if cfg.PayBaseURL == "" {
		return nil, errors.New("PAY_BASE_URL is required")
	}
	if cfg.ReturnURL == "" {
		return nil, errors.New("PAY_RETURN_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
