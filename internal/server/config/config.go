// Package config handles configuration for the theme server: defaults,
// a JSON or YAML config file, environment variables (with an optional .env
// file) and command-line flags, applied in that order.
package config

import "time"

// Config holds runtime settings for the theme server.
//
// Fields:
//   - ListenAddr: bind address for the HTTP API and page shell.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the file repository under DataDir.
//   - DataDir: root directory for file-backed metadata and blobs.
//   - SecretKey: HMAC secret for verifying bearer JWTs (HS256).
//   - DefaultUserID: identity used when a request carries none.
//   - MaxCSSBytes: upper bound on a submitted stylesheet, checked before validation.
//   - CacheTTL: lifetime of a ServerCache entry.
//   - ThemeFetchTimeout: how long the page shell waits for the current theme.
//   - SubmitRatePerMinute: per-user submission budget.
//   - S3*: object storage for theme bytes. Empty S3Bucket keeps bytes on disk.
//   - OfficialThemeURL: href of the host's own stylesheet in the page shell.
type Config struct {
	ListenAddr          string
	DatabaseDSN         string
	DataDir             string
	SecretKey           string
	DefaultUserID       string
	MaxCSSBytes         int
	CacheTTL            time.Duration
	ThemeFetchTimeout   time.Duration
	SubmitRatePerMinute int
	S3RootUser          string
	S3RootPassword      string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	OfficialThemeURL    string
	LogLevel            string
}

const (
	DefaultMaxCSSBytes       = 200 * 1024
	DefaultThemeFetchTimeout = 3000 * time.Millisecond
	DefaultCacheTTL          = time.Hour
)

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.DatabaseDSN = ""
	c.DataDir = ".data/user-themes"
	c.SecretKey = "secretKey"
	c.DefaultUserID = "demo-user"
	c.MaxCSSBytes = DefaultMaxCSSBytes
	c.CacheTTL = DefaultCacheTTL
	c.ThemeFetchTimeout = DefaultThemeFetchTimeout
	c.SubmitRatePerMinute = 30
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.OfficialThemeURL = "/static/official.css"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line
// flags. Malformed input panics, as the process cannot start without it.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
