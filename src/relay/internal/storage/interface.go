package storage

import "context"

// CounterStore is the key/value side store holding per-client numeric fields.
type CounterStore interface {
	// Increment atomically adds one to field of key and returns the new value.
	Increment(ctx context.Context, key, field string) (int64, error)

	// Get returns the current value of field of key, zero when never incremented.
	Get(ctx context.Context, key, field string) (int64, error)

	// Close releases any resource held by the store.
	Close() error
}
