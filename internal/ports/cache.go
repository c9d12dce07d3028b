package ports

import (
	"context"
	"time"
)

// NoExpiry keeps a cache entry until it is overwritten or deleted.
const NoExpiry time.Duration = 0

// Cache holds derived hints such as the last sweep watermark and request
// status snapshots. The approval ledger is never read back from it.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value for ttl; NoExpiry keeps it indefinitely.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
