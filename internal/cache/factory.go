// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"strings"
	"time"
)

// Backend names reported by NewCacheWithInfo.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig holds configuration for cache creation.
type CacheConfig struct {
	// Type is the cache backend type: "memory" or "redis"
	Type string

	// RedisURL is the Redis connection URL (only for redis type)
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis (only for redis type)
	Prefix string

	// FallbackToMemory selects the memory backend when Redis is unreachable
	FallbackToMemory bool

	// DefaultTTL is the default TTL for cache entries
	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited)
	MaxSize int

	// CleanupInterval is the interval for expired entry cleanup
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Type:             CacheBackendMemory,
		Prefix:           "ocb:",
		FallbackToMemory: true,
		DefaultTTL:       time.Hour,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
	}
}

// CacheResult describes the cache that NewCacheWithInfo built.
type CacheResult struct {
	Cache       Cacher
	BackendType string
	IsFallback  bool
	// Err is the Redis error that caused a fallback, if any.
	Err error
}

// NewCacheWithInfo creates a cache based on cfg and reports which backend
// was chosen. A redis config that cannot connect falls back to memory only
// when FallbackToMemory is set.
func NewCacheWithInfo(cfg CacheConfig) (CacheResult, error) {
	if cfg.Type == CacheBackendRedis && cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			return CacheResult{Cache: rc, BackendType: CacheBackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return CacheResult{}, fmt.Errorf("connecting to redis at %s: %w", maskRedisURL(cfg.RedisURL), err)
		}
		return CacheResult{
			Cache:       newMemoryFromConfig(cfg),
			BackendType: CacheBackendMemory,
			IsFallback:  true,
			Err:         err,
		}, nil
	}

	return CacheResult{Cache: newMemoryFromConfig(cfg), BackendType: CacheBackendMemory}, nil
}

func newMemoryFromConfig(cfg CacheConfig) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// maskRedisURL hides credentials so the URL can be logged.
func maskRedisURL(raw string) string {
	schemeEnd := strings.Index(raw, "://")
	at := strings.LastIndex(raw, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return raw
	}
	return raw[:schemeEnd+3] + "***" + raw[at:]
}
