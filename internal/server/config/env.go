package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv loads a .env file from the working directory when present and
// overlays recognized environment variables onto config.
func parseEnv(config *Config) {
	_ = godotenv.Load()
	applyEnv(config, os.LookupEnv)
}

// applyEnv reads variables through lookup so tests need not touch the
// process environment.
//
//	THEME_LISTEN_ADDR, DATABASE_DSN, THEME_DATA_DIR, THEME_SECRET_KEY,
//	THEME_DEFAULT_USER, THEME_MAX_CSS_BYTES, THEME_CACHE_TTL (seconds),
//	THEME_FETCH_TIMEOUT (milliseconds), THEME_SUBMIT_RATE (per minute),
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	THEME_OFFICIAL_URL, LOG_LEVEL
//
// THEME_CACHE_TTL and THEME_FETCH_TIMEOUT fall back to their defaults when
// the value is not a positive integer. Other malformed numbers panic.
func applyEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("THEME_LISTEN_ADDR", &config.ListenAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("THEME_DATA_DIR", &config.DataDir)
	str("THEME_SECRET_KEY", &config.SecretKey)
	str("THEME_DEFAULT_USER", &config.DefaultUserID)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("THEME_OFFICIAL_URL", &config.OfficialThemeURL)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := lookup("THEME_MAX_CSS_BYTES"); ok && v != "" {
		config.MaxCSSBytes = mustAtoi("THEME_MAX_CSS_BYTES", v)
	}
	if v, ok := lookup("THEME_SUBMIT_RATE"); ok && v != "" {
		config.SubmitRatePerMinute = mustAtoi("THEME_SUBMIT_RATE", v)
	}
	if v, ok := lookup("THEME_CACHE_TTL"); ok {
		config.CacheTTL = positiveOr(v, time.Second, DefaultCacheTTL)
	}
	if v, ok := lookup("THEME_FETCH_TIMEOUT"); ok {
		config.ThemeFetchTimeout = positiveOr(v, time.Millisecond, DefaultThemeFetchTimeout)
	}
}

func mustAtoi(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	return n
}

func positiveOr(v string, unit, def time.Duration) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * unit
}
