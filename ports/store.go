package ports

import (
	"context"
	"time"
)

// Store is a small key/value store with expiry. The client keeps the current
// user marker (and bearer tokens) in it; the dev upstream keeps its revocation list.
type Store interface {
	// Set stores value under key; a zero ttl means no expiry
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns core.ErrMarkerNotFound when the key is absent or expired
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the keys, ignoring those that do not exist
	Delete(ctx context.Context, keys ...string) error
}
