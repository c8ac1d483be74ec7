package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-f string   data directory for file-backed storage
//	-s string   JWT HMAC secret key
//	-m int      max stylesheet size, bytes
//	-t int      page-shell theme fetch timeout, milliseconds
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-v string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-f", "-s", "-m", "-t", "-b", "-g", "-e", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.MaxCSSBytes, "m", config.MaxCSSBytes, "max stylesheet size (bytes)")

	fetchTimeout := fs.Int("t", int(config.ThemeFetchTimeout.Milliseconds()), "theme fetch timeout (in milliseconds)")

	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *fetchTimeout > 0 {
		config.ThemeFetchTimeout = time.Duration(*fetchTimeout) * time.Millisecond
	}
}
