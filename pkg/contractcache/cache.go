// Package contractcache caches the live on-chain deposit-count reads the
// read API needs for sync_status, so a burst of status polling does not
// turn into a burst of RPC calls against the configured node.
package contractcache

import "context"

// Cache fronts a single (contract address -> depositCount) lookup with a
// short TTL.
type Cache interface {
	// Get returns the cached deposit count for address if present and not
	// expired, or ok=false on a miss.
	Get(ctx context.Context, key string) (count uint64, ok bool, err error)
	Set(ctx context.Context, key string, count uint64) error
}
