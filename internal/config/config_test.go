// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/ocb.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/ocb.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CachePrefix != "ocb:" {
		t.Errorf("CachePrefix = %q, want %q", cfg.CachePrefix, "ocb:")
	}
	if cfg.JobTTLDuration() != time.Hour {
		t.Errorf("JobTTLDuration() = %v, want 1h", cfg.JobTTLDuration())
	}
	if cfg.LockTTLDuration() != 5*time.Minute {
		t.Errorf("LockTTLDuration() = %v, want 5m", cfg.LockTTLDuration())
	}
	if cfg.LockMaxTTLDuration() != time.Hour {
		t.Errorf("LockMaxTTLDuration() = %v, want 1h", cfg.LockMaxTTLDuration())
	}
	if cfg.ImportWorkers != 2 || cfg.ImportQueueSize != 100 {
		t.Errorf("import pool = %d/%d, want 2/100", cfg.ImportWorkers, cfg.ImportQueueSize)
	}
	if cfg.ImportStepDelay() != 0 {
		t.Errorf("ImportStepDelay() = %v, want 0", cfg.ImportStepDelay())
	}
	if cfg.ImportRemoteFetch {
		t.Error("ImportRemoteFetch should default to false")
	}
	if cfg.PublicCacheTTLDuration() != time.Minute {
		t.Errorf("PublicCacheTTLDuration() = %v, want 1m", cfg.PublicCacheTTLDuration())
	}
	if cfg.PublicRateLimit != 10 || cfg.PublicRateBurst != 20 {
		t.Errorf("rate limit = %g/%d, want 10/20", cfg.PublicRateLimit, cfg.PublicRateBurst)
	}
	if cfg.EventRetention() != 30*24*time.Hour {
		t.Errorf("EventRetention() = %v, want 720h", cfg.EventRetention())
	}
	if cfg.ShutdownTimeoutDuration() != 10*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 10s", cfg.ShutdownTimeoutDuration())
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() should be false without OCB_REDIS_URL")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OCB_DB_PATH", "/custom/path.db")
	setEnv(t, "OCB_SERVER_HOST", "0.0.0.0")
	setEnv(t, "OCB_SERVER_PORT", "3000")
	setEnv(t, "OCB_ENV", "production")
	setEnv(t, "OCB_LOG_LEVEL", "debug")
	setEnv(t, "OCB_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "OCB_LOCK_TTL", "60")
	setEnv(t, "OCB_IMPORT_STEP_DELAY_MS", "250")
	setEnv(t, "OCB_IMPORT_REMOTE_FETCH", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be false in production")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() should be true")
	}
	if cfg.LockTTLDuration() != time.Minute {
		t.Errorf("LockTTLDuration() = %v, want 1m", cfg.LockTTLDuration())
	}
	if cfg.ImportStepDelay() != 250*time.Millisecond {
		t.Errorf("ImportStepDelay() = %v, want 250ms", cfg.ImportStepDelay())
	}
	if !cfg.ImportRemoteFetch {
		t.Error("ImportRemoteFetch should be true")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port zero", map[string]string{"OCB_SERVER_PORT": "0"}, "OCB_SERVER_PORT"},
		{"port too high", map[string]string{"OCB_SERVER_PORT": "70000"}, "OCB_SERVER_PORT"},
		{"port not a number", map[string]string{"OCB_SERVER_PORT": "abc"}, "parsing config"},
		{"unknown log level", map[string]string{"OCB_LOG_LEVEL": "trace"}, "OCB_LOG_LEVEL"},
		{"zero job ttl", map[string]string{"OCB_JOB_TTL": "0"}, "OCB_JOB_TTL"},
		{"lock ttl above max", map[string]string{"OCB_LOCK_TTL": "7200"}, "must not exceed"},
		{"no workers", map[string]string{"OCB_IMPORT_WORKERS": "0"}, "OCB_IMPORT_WORKERS"},
		{"no queue", map[string]string{"OCB_IMPORT_QUEUE_SIZE": "0"}, "OCB_IMPORT_QUEUE_SIZE"},
		{"negative delay", map[string]string{"OCB_IMPORT_STEP_DELAY_MS": "-1"}, "OCB_IMPORT_STEP_DELAY_MS"},
		{"zero rate", map[string]string{"OCB_PUBLIC_RATE_LIMIT": "0"}, "OCB_PUBLIC_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Config{
		ServerPort:         0,
		LogLevel:           "loud",
		JobTTL:             1,
		LockTTL:            1,
		LockMaxTTL:         1,
		PublicCacheTTL:     1,
		ImportWorkers:      1,
		ImportQueueSize:    1,
		PublicRateLimit:    1,
		PublicRateBurst:    1,
		EventRetentionDays: 1,
		ShutdownTimeout:    1,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "OCB_SERVER_PORT") || !strings.Contains(msg, "OCB_LOG_LEVEL") {
		t.Errorf("expected both errors, got %q", msg)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}
