// Package cache holds short-lived byte entries with a time-to-live, in process or in redis.
//
// The memento store keeps the state of transient objects here between two UI round-trips.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// ErrClosed is returned by a cache after Close
var ErrClosed = errors.New("cache closed")

// Cache is a key/value store whose entries expire
type Cache interface {
	// Get returns the entry for key, or an error wrapping ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key; a zero ttl means the configured default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Touch restarts the ttl of an existing entry
	Touch(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Clear removes every entry this cache owns
	Clear(ctx context.Context) error

	// Close releases background resources
	Close() error
}

// Config is shared by all backends
type Config struct {
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration
	// Prefix namespaces keys in a shared backend
	Prefix string
}

// DefaultConfig keeps entries for half an hour
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 30 * time.Minute,
		Prefix:     "causeway:",
	}
}

func (c Config) ttl(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.DefaultTTL
}

func miss(key string) error {
	return fmt.Errorf("%w: %s", ErrMiss, key)
}

// IsMiss reports whether err means the key was not found
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
