// Package config handles configuration for the CLI and the callable server:
// defaults, then .env and POCKETBANK_* environment variables, then an
// optional JSON file, then command-line flags. Later sources win.
package config

import (
	"fmt"
	"time"
)

const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// Config holds runtime settings.
//
// Fields:
//   - DataDir / DatabaseFile: where the embedded database lives.
//   - MaxOpenConns: connection cap of the embedded store.
//   - LogBackend / LogLevel / LogFormat: see logging.Options.
//   - TimeZone: IANA name used for statement month and year boundaries.
//   - GRPCAddr / HTTPAddr: listen addresses of the callable server; empty disables one.
//   - RemoteEndpoint / RemoteTransport: when set, the CLI talks to a server instead of the local ledger.
//   - SecretKey / AccessTokenValidity: HS256 signing of access tokens. Do not use the default in prod.
//   - RedisAddr / RedisPassword / RedisDB: shared throttle state; empty keeps it in the embedded store.
//   - RateLimit / RateBurst: requests per second accepted by the server; 0 disables limiting.
type Config struct {
	DataDir             string
	DatabaseFile        string
	MaxOpenConns        int
	LogBackend          string
	LogLevel            string
	LogFormat           string
	TimeZone            string
	GRPCAddr            string
	HTTPAddr            string
	RemoteEndpoint      string
	RemoteTransport     string
	SecretKey           string
	AccessTokenValidity time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RateLimit           float64
	RateBurst           int
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.DataDir = ".pocketbank"
	c.DatabaseFile = "ledger.db"
	c.MaxOpenConns = 1
	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.TimeZone = "UTC"
	c.GRPCAddr = ":50051"
	c.HTTPAddr = ":8080"
	c.RemoteTransport = TransportGRPC
	c.SecretKey = "secretKey"
	c.AccessTokenValidity = 60 * time.Minute
	c.RateLimit = 50
	c.RateBurst = 100
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Remote reports whether the CLI should use a callable server.
func (c *Config) Remote() bool {
	return c.RemoteEndpoint != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
