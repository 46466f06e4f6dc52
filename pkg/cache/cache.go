// Package cache stores resolved metadata documents and rendered artifacts.
//
// Entries are opaque byte slices addressed by keys from a [Keyer]. Three
// backends are provided:
//
//   - [FileCache]: sharded JSON files under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: stores nothing (--no-cache and tests)
//
// Keys derive from the SHA-256 of the raw BPMN bytes plus every option that
// influences the result, so a cached entry is only reused for identical input.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-level key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live values per entry kind.
const (
	// TTLMetadata applies to resolved metadata documents. Entries are keyed
	// by content hash, so they only age out to bound disk usage.
	TTLMetadata = 7 * 24 * time.Hour

	// TTLRender applies to rendered DOT and SVG artifacts.
	TTLRender = 24 * time.Hour
)
