// Package cache stores derived results (allocations, rendered artifacts)
// keyed by a hash of their inputs.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so the pipeline never formats keys by hand.
// [ScopedKeyer] prefixes keys when several shows share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes.
const (
	// TTLAllocation bounds how long an allocation result is reused. The key
	// already covers every input, so this only limits disk growth.
	TTLAllocation = 7 * 24 * time.Hour

	// TTLArtifact is the lifetime of rendered diagrams.
	TTLArtifact = 24 * time.Hour
)
