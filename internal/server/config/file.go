package config

import (
	"github.com/dmitrijs2005/usertheme/internal/flagx"
	"github.com/dmitrijs2005/usertheme/internal/timex"
)

// FileConfig is the on-disk shape of the server config. Durations accept
// strings such as "3s" or integer nanoseconds. Zero values leave the
// current setting untouched.
type FileConfig struct {
	ListenAddr          string         `json:"listen_addr" yaml:"listen_addr"`
	DatabaseDSN         string         `json:"database_dsn" yaml:"database_dsn"`
	DataDir             string         `json:"data_dir" yaml:"data_dir"`
	SecretKey           string         `json:"secret_key" yaml:"secret_key"`
	DefaultUserID       string         `json:"default_user_id" yaml:"default_user_id"`
	MaxCSSBytes         int            `json:"max_css_bytes" yaml:"max_css_bytes"`
	CacheTTL            timex.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	ThemeFetchTimeout   timex.Duration `json:"theme_fetch_timeout" yaml:"theme_fetch_timeout"`
	SubmitRatePerMinute int            `json:"submit_rate_per_minute" yaml:"submit_rate_per_minute"`
	S3RootUser          string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region            string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	OfficialThemeURL    string         `json:"official_theme_url" yaml:"official_theme_url"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any, into config.
// It panics when the file cannot be read or decoded.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := flagx.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}
	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DataDir, c.DataDir)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.DefaultUserID, c.DefaultUserID)
	if c.MaxCSSBytes > 0 {
		config.MaxCSSBytes = c.MaxCSSBytes
	}
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.ThemeFetchTimeout.Duration > 0 {
		config.ThemeFetchTimeout = c.ThemeFetchTimeout.Duration
	}
	if c.SubmitRatePerMinute > 0 {
		config.SubmitRatePerMinute = c.SubmitRatePerMinute
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OfficialThemeURL, c.OfficialThemeURL)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
