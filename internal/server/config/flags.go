package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/flagx"
)

// parseFlags overlays Config from command-line flags.
//
//	-a string   HTTP bind address (":5000")
//	-g string   gRPC health bind address (":50051")
//	-d string   PostgreSQL DSN, or "memory" for in-memory repositories
//	-s string   access token HMAC secret
//	-S string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-l string   log level
//	-f string   log format: json or console
//	-b string   image storage backend: local or s3
//	-u string   upload dir for the local backend
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-S", "-t", "-r", "-l", "-f", "-b", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "HTTP address and port")
	fs.StringVar(&config.GRPCAddress, "g", config.GRPCAddress, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN or \"memory\"")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "access token secret")
	fs.StringVar(&config.JWTRefreshSecret, "S", config.JWTRefreshSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json|console)")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "image storage backend (local|s3)")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload dir for local storage")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only explicit duration flags apply, so sub-minute values from other sources survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
