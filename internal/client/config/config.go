package config

import "time"

// Config holds runtime settings for the theme client.
//
// Fields:
//   - ServerURL: base URL of the theme server.
//   - CachePath: SQLite file of the local theme cache. Empty keeps the cache in memory.
//   - AccessToken: optional bearer token.
//   - UserID: optional userId cookie, as set by the host application.
//   - OutputPath: where the render command writes the page.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL      string
	CachePath      string
	AccessToken    string
	UserID         string
	OutputPath     string
	RequestTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.CachePath = ".data/client/themes.db"
	c.AccessToken = ""
	c.UserID = ""
	c.OutputPath = "page.html"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from a config file, the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
