package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultEnv              = "development"
	defaultKISBaseURL       = "https://openapi.koreainvestment.com:9443"
	defaultKISAppName       = "asset-us-daily-sync"
	defaultTokenCachePath   = ".token_cache.json"
	defaultRateIntervalMS   = 500
	defaultIndexBaseURL     = "https://stooq.com/q/d/l/"
	defaultIndexTimeoutSecs = 30
)

// Config keeps the runtime configuration for a sync run.
type Config struct {
	Env      string
	Postgres PostgresConfig
	KIS      KISConfig
	Index    IndexConfig
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// KISConfig stores broker API connection parameters.
type KISConfig struct {
	BaseURL            string
	AppKey             string
	AppSecret          string
	AccountNo          string
	AccountProductCode string
	AppName            string
	TokenCachePath     string
	RateInterval       time.Duration
}

// IndexConfig stores market index provider settings.
type IndexConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	appKey := os.Getenv("KIS_APP_KEY")
	if appKey == "" {
		return nil, errors.New("KIS_APP_KEY is required")
	}
	appSecret := os.Getenv("KIS_APP_SECRET")
	if appSecret == "" {
		return nil, errors.New("KIS_APP_SECRET is required")
	}
	accountNo := os.Getenv("KIS_ACCOUNT_NO")
	if accountNo == "" {
		return nil, errors.New("KIS_ACCOUNT_NO is required")
	}

	rateMS, err := getInt("KIS_RATE_INTERVAL_MS", defaultRateIntervalMS)
	if err != nil {
		return nil, fmt.Errorf("parse KIS_RATE_INTERVAL_MS: %w", err)
	}

	indexTimeout, err := getInt("INDEX_TIMEOUT_SECONDS", defaultIndexTimeoutSecs)
	if err != nil {
		return nil, fmt.Errorf("parse INDEX_TIMEOUT_SECONDS: %w", err)
	}

	return &Config{
		Env: getString("APP_ENV", defaultEnv),
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		KIS: KISConfig{
			BaseURL:            getString("KIS_BASE_URL", defaultKISBaseURL),
			AppKey:             appKey,
			AppSecret:          appSecret,
			AccountNo:          accountNo,
			AccountProductCode: getString("KIS_ACCOUNT_PRODUCT_CD", "01"),
			AppName:            getString("KIS_APP_NAME", defaultKISAppName),
			TokenCachePath:     getString("KIS_TOKEN_CACHE", defaultTokenCachePath),
			RateInterval:       time.Duration(rateMS) * time.Millisecond,
		},
		Index: IndexConfig{
			BaseURL: getString("INDEX_BASE_URL", defaultIndexBaseURL),
			Timeout: time.Duration(indexTimeout) * time.Second,
		},
	}, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}
