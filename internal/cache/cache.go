// Package cache provides the optional read-through layer in front of the
// ticket store. Every implementation may fail independently of the store.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfNewer writes value only if version is above the last version
	// written under key, or equal to it while the value itself is gone. It
	// reports whether the write happened.
	SetIfNewer(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error)
	// Delete drops values; the version floor recorded by SetIfNewer survives
	// until its TTL so an older value cannot be written back.
	Delete(ctx context.Context, keys ...string) error
}

// Observer receives one call per cache operation, e.g. ("get", "hit").
type Observer interface {
	ObserveCacheOp(op, result string)
}

const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Key joins parts with ':' so the same inputs always build the same key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// VersionKey holds the version floor guarding key.
func VersionKey(key string) string {
	return Key(key, "version")
}

// TicketKey is the cache key for a single ticket.
func TicketKey(id string) string {
	return Key("ticket", id)
}

// Noop never stores anything; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) SetIfNewer(context.Context, string, []byte, int64, time.Duration) (bool, error) {
	return false, nil
}

func (Noop) Delete(context.Context, ...string) error { return nil }
