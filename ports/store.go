package ports

import (
	"context"
	"time"
)

// Store is a keyed session store with TTL semantics. Implementations must
// isolate entries per key; writes for one session never affect another's.
type Store interface {
	// Set stores a value under key, overwriting any previous value. A
	// non-zero ttl bounds the entry's lifetime.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key, returning core.ErrNotFound for missing
	// or expired entries.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
