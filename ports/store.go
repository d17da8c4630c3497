package ports

import (
	"context"
	"time"

	"github.com/layer-3/portal/core"
)

// Store is a key/value store with expiry, used for request wizard snapshots
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns core.ErrNotFound when the key is absent or expired
	Get(ctx context.Context, key string) (string, error)
}

// CookieStore persists values on the client with an explicit expiry
type CookieStore interface {
	Put(key, value string, expires time.Time, attrs core.CookieAttributes) error
}
