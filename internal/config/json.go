package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pocketbank/internal/flagx"
	"github.com/dmitrijs2005/pocketbank/internal/timex"
)

// JsonConfig is the shape of the JSON configuration file. Durations accept
// "15m" style strings or integer nanoseconds. Absent fields keep the value
// from earlier sources.
type JsonConfig struct {
	DataDir             string         `json:"data_dir"`
	DatabaseFile        string         `json:"database_file"`
	MaxOpenConns        int            `json:"max_open_conns"`
	LogBackend          string         `json:"log_backend"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
	TimeZone            string         `json:"time_zone"`
	GRPCAddr            string         `json:"grpc_addr"`
	HTTPAddr            string         `json:"http_addr"`
	RemoteEndpoint      string         `json:"remote_endpoint"`
	RemoteTransport     string         `json:"remote_transport"`
	SecretKey           string         `json:"secret_key"`
	AccessTokenValidity timex.Duration `json:"access_token_validity"`
	RedisAddr           string         `json:"redis_addr"`
	RedisPassword       string         `json:"redis_password"`
	RedisDB             int            `json:"redis_db"`
	RateLimit           float64        `json:"rate_limit"`
	RateBurst           int            `json:"rate_burst"`
}

// parseJson loads the file named by -c / -config, if any, into config.
// An unreadable or invalid file panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	setStr(&config.DataDir, c.DataDir)
	setStr(&config.DatabaseFile, c.DatabaseFile)
	setInt(&config.MaxOpenConns, c.MaxOpenConns)
	setStr(&config.LogBackend, c.LogBackend)
	setStr(&config.LogLevel, c.LogLevel)
	setStr(&config.LogFormat, c.LogFormat)
	setStr(&config.TimeZone, c.TimeZone)
	setStr(&config.GRPCAddr, c.GRPCAddr)
	setStr(&config.HTTPAddr, c.HTTPAddr)
	setStr(&config.RemoteEndpoint, c.RemoteEndpoint)
	setStr(&config.RemoteTransport, c.RemoteTransport)
	setStr(&config.SecretKey, c.SecretKey)
	setStr(&config.RedisAddr, c.RedisAddr)
	setStr(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setInt(&config.RateBurst, c.RateBurst)

	if c.AccessTokenValidity.Duration != 0 {
		config.AccessTokenValidity = c.AccessTokenValidity.Duration
	}
	if c.RateLimit != 0 {
		config.RateLimit = c.RateLimit
	}
}
