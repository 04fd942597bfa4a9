package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts the name of every environment variable read here.
const EnvPrefix = "POCKETBANK_"

// parseEnv loads .env from the working directory when present, without
// overriding variables that are already set, then reads POCKETBANK_*.
// Malformed numbers and durations are ignored.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("DATA_DIR", &config.DataDir)
	str("DATABASE_FILE", &config.DatabaseFile)
	num("MAX_OPEN_CONNS", &config.MaxOpenConns)
	str("LOG_BACKEND", &config.LogBackend)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)
	str("TIME_ZONE", &config.TimeZone)
	str("GRPC_ADDR", &config.GRPCAddr)
	str("HTTP_ADDR", &config.HTTPAddr)
	str("REMOTE_ENDPOINT", &config.RemoteEndpoint)
	str("REMOTE_TRANSPORT", &config.RemoteTransport)
	str("SECRET_KEY", &config.SecretKey)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PASSWORD", &config.RedisPassword)
	num("REDIS_DB", &config.RedisDB)
	num("RATE_BURST", &config.RateBurst)

	if v, ok := os.LookupEnv(EnvPrefix + "ACCESS_TOKEN_VALIDITY"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidity = d
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.RateLimit = f
		}
	}
}
