// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides TTL key-value storage backed by memory or Redis.
// It holds import job records and the public page cache.
package cache

import (
	"context"
	"time"
)

// Cacher defines the interface for cache implementations.
// All implementations must be thread-safe.
// Values are []byte so the same code works against memory and Redis.
type Cacher interface {
	// Get retrieves a value from the cache.
	// Returns nil and ErrCacheMiss if not found or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified TTL.
	// If TTL is 0, uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Update atomically replaces the value at key with the output of fn.
	// fn receives the current value (nil when missing). If fn returns an
	// error, nothing is written and the error is returned unchanged.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Has checks if a key exists in the cache (and is not expired).
	Has(ctx context.Context, key string) (bool, error)

	// Close releases any resources held by the cache.
	Close() error
}

// UpdateFunc computes a new value from the current one.
type UpdateFunc func(current []byte) ([]byte, error)

// StatsProvider is implemented by caches that count their traffic. The
// verbose health check reports it.
type StatsProvider interface {
	Stats() Stats
}

// Stats holds cache statistics. Items and Size are only known for the
// in-process cache.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items,omitempty"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size_bytes,omitempty"`
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"

	// ErrUpdateConflict indicates an Update kept losing to concurrent writers.
	ErrUpdateConflict Error = "cache update conflict"
)

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
