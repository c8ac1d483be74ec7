package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the theme server
//	-p string   local cache path
//	-k string   bearer token
//	-u string   userId cookie
//	-o string   render output path
//	-t int      request timeout (in seconds)
//	-v string   log level
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-k", "-u", "-o", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "theme server base URL")
	fs.StringVar(&cfg.CachePath, "p", cfg.CachePath, "local cache path")
	fs.StringVar(&cfg.AccessToken, "k", cfg.AccessToken, "bearer token")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "userId cookie")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "render output path")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
