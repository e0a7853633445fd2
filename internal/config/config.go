// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OCB_DB_PATH" envDefault:"./data/ocb.db"`
	ServerHost string `env:"OCB_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OCB_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OCB_ENV" envDefault:"development"`
	LogLevel   string `env:"OCB_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"OCB_REDIS_URL"`                         // Optional Redis URL for job records
	CachePrefix  string `env:"OCB_CACHE_PREFIX" envDefault:"ocb:"`    // Redis key prefix
	CacheMaxSize int    `env:"OCB_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Draft locks and import jobs, in seconds
	JobTTL     int `env:"OCB_JOB_TTL" envDefault:"3600"`
	LockTTL    int `env:"OCB_LOCK_TTL" envDefault:"300"`
	LockMaxTTL int `env:"OCB_LOCK_MAX_TTL" envDefault:"3600"`

	// Import worker pool
	ImportWorkers     int  `env:"OCB_IMPORT_WORKERS" envDefault:"2"`
	ImportQueueSize   int  `env:"OCB_IMPORT_QUEUE_SIZE" envDefault:"100"`
	ImportStepDelayMS int  `env:"OCB_IMPORT_STEP_DELAY_MS" envDefault:"0"`
	ImportRemoteFetch bool `env:"OCB_IMPORT_REMOTE_FETCH" envDefault:"false"`

	// Public surface
	PublicCacheTTL  int     `env:"OCB_PUBLIC_CACHE_TTL" envDefault:"60"`
	PublicRateLimit float64 `env:"OCB_PUBLIC_RATE_LIMIT" envDefault:"10"`
	PublicRateBurst int     `env:"OCB_PUBLIC_RATE_BURST" envDefault:"20"`

	// Browser editors allowed to call the API, comma separated. Empty disables CORS.
	CORSOrigins []string `env:"OCB_CORS_ORIGINS" envSeparator:","`

	EventRetentionDays int `env:"OCB_EVENT_RETENTION_DAYS" envDefault:"30"`
	ShutdownTimeout    int `env:"OCB_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// JobTTLDuration returns the import job record TTL.
func (c Config) JobTTLDuration() time.Duration {
	return time.Duration(c.JobTTL) * time.Second
}

// LockTTLDuration returns the default draft lock TTL.
func (c Config) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

// LockMaxTTLDuration returns the longest draft lock a caller may request.
func (c Config) LockMaxTTLDuration() time.Duration {
	return time.Duration(c.LockMaxTTL) * time.Second
}

// ImportStepDelay returns the pause between import worker steps.
func (c Config) ImportStepDelay() time.Duration {
	return time.Duration(c.ImportStepDelayMS) * time.Millisecond
}

// PublicCacheTTLDuration returns the public page cache TTL.
func (c Config) PublicCacheTTLDuration() time.Duration {
	return time.Duration(c.PublicCacheTTL) * time.Second
}

// EventRetention returns how long event_log rows are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// ShutdownTimeoutDuration returns the graceful shutdown deadline.
func (c Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("OCB_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("OCB_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"OCB_JOB_TTL", c.JobTTL},
		{"OCB_LOCK_TTL", c.LockTTL},
		{"OCB_LOCK_MAX_TTL", c.LockMaxTTL},
		{"OCB_PUBLIC_CACHE_TTL", c.PublicCacheTTL},
		{"OCB_IMPORT_WORKERS", c.ImportWorkers},
		{"OCB_IMPORT_QUEUE_SIZE", c.ImportQueueSize},
		{"OCB_PUBLIC_RATE_BURST", c.PublicRateBurst},
		{"OCB_EVENT_RETENTION_DAYS", c.EventRetentionDays},
		{"OCB_SHUTDOWN_TIMEOUT", c.ShutdownTimeout},
	}
	for _, p := range positive {
		if p.value < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}

	if c.LockTTL > c.LockMaxTTL {
		errs = append(errs, fmt.Errorf("OCB_LOCK_TTL (%d) must not exceed OCB_LOCK_MAX_TTL (%d)", c.LockTTL, c.LockMaxTTL))
	}
	if c.ImportStepDelayMS < 0 {
		errs = append(errs, fmt.Errorf("OCB_IMPORT_STEP_DELAY_MS must not be negative, got %d", c.ImportStepDelayMS))
	}
	if c.PublicRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("OCB_PUBLIC_RATE_LIMIT must be positive, got %g", c.PublicRateLimit))
	}

	return errors.Join(errs...)
}
