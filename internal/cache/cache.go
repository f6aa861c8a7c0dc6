// Package cache provides the pluggable store behind the caching data
// provider and the stock search index. Implementations JSON-encode
// values so any serializable type round-trips.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the minimal cache surface the application needs.
type Store interface {
	// Get unmarshals the cached value for key into dest, or returns
	// ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores value under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
