package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	applyEnv(cfg, lookupFrom(map[string]string{
		"THEME_LISTEN_ADDR":   ":9999",
		"DATABASE_DSN":        "postgres://db",
		"THEME_DEFAULT_USER":  "anon",
		"THEME_MAX_CSS_BYTES": "2048",
		"THEME_CACHE_TTL":     "60",
		"THEME_FETCH_TIMEOUT": "500",
		"S3_BUCKET":           "themes",
		"LOG_LEVEL":           "debug",
	}))

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
	assert.Equal(t, "anon", cfg.DefaultUserID)
	assert.Equal(t, 2048, cfg.MaxCSSBytes)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.ThemeFetchTimeout)
	assert.Equal(t, "themes", cfg.S3Bucket)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_TimeoutFallsBackToDefault(t *testing.T) {
	for _, raw := range []string{"", "0", "-10", "soon"} {
		cfg := &Config{ThemeFetchTimeout: time.Second, CacheTTL: time.Second}
		applyEnv(cfg, lookupFrom(map[string]string{"THEME_FETCH_TIMEOUT": raw, "THEME_CACHE_TTL": raw}))
		assert.Equal(t, DefaultThemeFetchTimeout, cfg.ThemeFetchTimeout, raw)
		assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL, raw)
	}
}

func TestApplyEnv_MalformedNumberPanics(t *testing.T) {
	require.Panics(t, func() {
		applyEnv(&Config{}, lookupFrom(map[string]string{"THEME_MAX_CSS_BYTES": "big"}))
	})
}
