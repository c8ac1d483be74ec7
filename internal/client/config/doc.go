// Package config loads runtime configuration for the theme client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file (see parseFile) selected via -c or -config.
//  3. Environment variables, after loading an optional .env file (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the theme server
//	-p string   path of the local SQLite theme cache
//	-k string   bearer token sent with every request
//	-u string   userId cookie sent with every request
//	-o string   default output path of the render command
//	-t int      request timeout (seconds)
//	-v string   log level
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "cache_path": ".data/client/themes.db",
//	  "request_timeout": "10s"
//	}
package config
