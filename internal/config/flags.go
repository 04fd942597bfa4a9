package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/flagx"
)

var knownFlags = []string{"-d", "-f", "-b", "-l", "-z", "-g", "-w", "-r", "-t", "-s", "-v", "-x", "-q"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory
//	-f string   database file name
//	-b string   log backend (slog, zap)
//	-l string   log level
//	-z string   time zone of statements (e.g. "Europe/Riga")
//	-g string   gRPC listen address
//	-w string   HTTP listen address
//	-r string   remote endpoint; enables the remote ledger in the CLI
//	-t string   remote transport (grpc, http)
//	-s string   JWT HMAC secret key
//	-v int      access token validity, minutes
//	-x string   Redis address for shared throttle state
//	-q float    request rate limit per second
//
// Only the flags above are parsed, so other components may define their own.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.DatabaseFile, "f", config.DatabaseFile, "database file name")
	fs.StringVar(&config.LogBackend, "b", config.LogBackend, "log backend (slog, zap)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.TimeZone, "z", config.TimeZone, "time zone of statements")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC listen address")
	fs.StringVar(&config.HTTPAddr, "w", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.RemoteEndpoint, "r", config.RemoteEndpoint, "remote endpoint")
	fs.StringVar(&config.RemoteTransport, "t", config.RemoteTransport, "remote transport (grpc, http)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("v", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.RedisAddr, "x", config.RedisAddr, "Redis address")
	fs.Float64Var(&config.RateLimit, "q", config.RateLimit, "request rate limit per second")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidity = time.Duration(*accessTokenValidity) * time.Minute
}
