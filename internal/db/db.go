// Package db defines the key-value storage facade backing the caches.
package db

import (
	"context"
	"time"
)

// Store is the storage facade. Consumers depend on the narrow KVStore
// sub-interface; the facade adds lifecycle operations for the composition
// root.
type Store interface {
	KVStore
	Pinger
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KVStore provides the key-value operations the caches need.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	// Scan returns every key matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
