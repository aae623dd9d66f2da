package cache

import (
	"context"
	"time"
)

// Store is the shared key-value cache used for cross-instance session
// visibility. The Redis implementation is the source of truth in
// deployments; the in-memory store backs tests and single-node runs.
type Store interface {
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}
