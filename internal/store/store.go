// Package store provides the key-value store used for durable progress
// snapshots. Records are whole-value overwrites with a fixed expiry;
// last-writer-wins is the intended semantics.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Store is the narrow key-value contract the batch engine depends on.
type Store interface {
	// SetWithExpiry overwrites the value under key and resets its TTL.
	// Non-string values are stored as their JSON encoding.
	SetWithExpiry(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get returns the raw stored value, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
}
