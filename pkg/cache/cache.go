// Package cache provides pluggable caching backends for DevFinder.
//
// The [Cache] interface abstracts over byte-oriented key/value storage with
// optional TTL. Backends:
//   - [LRUCache]: bounded in-memory cache with least-recently-used eviction
//   - [FileCache]: file-based cache for CLI usage
//   - [RedisCache]: Redis-backed cache for multi-instance deployments
//   - [NullCache]: no-op cache for tests or when caching is disabled
//
// The [Keyer] interface generates stable cache keys for memoized search
// pages. Use [ScopedKeyer] to prefix keys for per-user isolation when a
// backend is shared.
package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for caching operations.
var (
	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss is returned when an item is not found in cache.
	ErrCacheMiss = errors.New("cache miss")
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL. A TTL of 0 means the entry
	// never expires (backends with capacity limits may still evict it).
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
