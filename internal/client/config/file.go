package config

import (
	"github.com/dmitrijs2005/usertheme/internal/flagx"
	"github.com/dmitrijs2005/usertheme/internal/timex"
)

// FileConfig is a DTO used only for decoding the config file.
type FileConfig struct {
	ServerURL      string         `json:"server_url" yaml:"server_url"`
	CachePath      string         `json:"cache_path" yaml:"cache_path"`
	AccessToken    string         `json:"access_token" yaml:"access_token"`
	UserID         string         `json:"user_id" yaml:"user_id"`
	OutputPath     string         `json:"output_path" yaml:"output_path"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. Fields missing
// from the file keep their current values. Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		panic(err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.CachePath != "" {
		cfg.CachePath = fc.CachePath
	}
	if fc.AccessToken != "" {
		cfg.AccessToken = fc.AccessToken
	}
	if fc.UserID != "" {
		cfg.UserID = fc.UserID
	}
	if fc.OutputPath != "" {
		cfg.OutputPath = fc.OutputPath
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
