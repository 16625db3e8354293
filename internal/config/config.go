// Package config loads chunkvault server settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/mtiwari1/chunkvault/internal/storage"
)

// Config holds all server settings. Storage limits are fixed by the engine
// and not configurable here.
type Config struct {
	GRPCAddr        string                  `yaml:"grpc_addr"`
	HTTPAddr        string                  `yaml:"http_addr"`
	DatabaseDSN     string                  `yaml:"database_dsn"` // empty keeps the catalog in memory
	Workers         int                     `yaml:"workers"`
	Retention       storage.RetentionPolicy `yaml:"retention"`
	Compress        bool                    `yaml:"compress"`
	MaxBody         string                  `yaml:"max_body"` // human size, e.g. "11MiB"
	ShutdownTimeout time.Duration           `yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig         `yaml:"rate_limit"`
	Log             LogConfig               `yaml:"log"`

	// MaxBodyBytes is MaxBody parsed by Validate.
	MaxBodyBytes int64 `yaml:"-"`
}

// RateLimitConfig bounds REST requests per client address. A zero
// PerSecond disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text, console, auto
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		GRPCAddr:        ":50051",
		HTTPAddr:        ":8080",
		Workers:         5,
		Retention:       storage.LatestOnly,
		MaxBody:         "11MiB",
		ShutdownTimeout: 10 * time.Second,
		RateLimit:       RateLimitConfig{PerSecond: 50, Burst: 100},
		Log:             LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CHUNKVAULT_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CHUNKVAULT_GRPC_ADDR", &c.GRPCAddr)
	str("CHUNKVAULT_HTTP_ADDR", &c.HTTPAddr)
	str("CHUNKVAULT_DB_DSN", &c.DatabaseDSN)
	str("CHUNKVAULT_MAX_BODY", &c.MaxBody)
	str("CHUNKVAULT_LOG_LEVEL", &c.Log.Level)
	str("CHUNKVAULT_LOG_FORMAT", &c.Log.Format)

	var err error
	parse := func(key string, apply func(string) error) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && v != "" {
			if perr := apply(v); perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
			}
		}
	}
	parse("CHUNKVAULT_WORKERS", func(v string) (e error) { c.Workers, e = strconv.Atoi(v); return })
	parse("CHUNKVAULT_RETENTION_KEEP", func(v string) (e error) { c.Retention.Keep, e = strconv.Atoi(v); return })
	parse("CHUNKVAULT_COMPRESS", func(v string) (e error) { c.Compress, e = strconv.ParseBool(v); return })
	parse("CHUNKVAULT_RATE_LIMIT", func(v string) (e error) { c.RateLimit.PerSecond, e = strconv.ParseFloat(v, 64); return })
	parse("CHUNKVAULT_SHUTDOWN_TIMEOUT", func(v string) (e error) { c.ShutdownTimeout, e = time.ParseDuration(v); return })
	return err
}

// Validate checks ranges and resolves MaxBodyBytes.
func (c *Config) Validate() error {
	var errs []error
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.per_second must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive"))
	}
	n, err := humanize.ParseBytes(c.MaxBody)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("max_body: %w", err))
	case n < storage.MaxFileSize:
		errs = append(errs, fmt.Errorf("max_body %s is below the %s file limit",
			humanize.IBytes(n), humanize.IBytes(storage.MaxFileSize)))
	default:
		c.MaxBodyBytes = int64(n)
	}
	return errors.Join(errs...)
}
