package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv reads THEME_SERVER_URL, THEME_CACHE_PATH, THEME_ACCESS_TOKEN,
// THEME_USER_ID, THEME_OUTPUT_PATH and LOG_LEVEL, after loading .env from
// the working directory when one exists.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()
	applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		"THEME_SERVER_URL":   &cfg.ServerURL,
		"THEME_CACHE_PATH":   &cfg.CachePath,
		"THEME_ACCESS_TOKEN": &cfg.AccessToken,
		"THEME_USER_ID":      &cfg.UserID,
		"THEME_OUTPUT_PATH":  &cfg.OutputPath,
		"LOG_LEVEL":          &cfg.LogLevel,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}
