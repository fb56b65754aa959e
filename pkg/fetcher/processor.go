package fetcher

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
)

// EventProcessor is the capability every event stream implements: it knows
// the cursor it left off at, and it knows how to apply a contiguous batch
// of logs. Fetcher dispatches to it by interface, not inheritance, so a
// bridge processor, an L1-info processor, and a rollup-manager processor
// plug into the same fetch loop.
type EventProcessor interface {
	// LatestProcessedBlock returns the last block number this processor has
	// durably applied, or nil if it has never processed anything.
	LatestProcessedBlock(ctx context.Context) (*uint64, error)
	// ProcessEvents applies a contiguous, ascending-by-block batch of logs
	// spanning [fromBlock, toBlock]. Implementations must be safe to retry
	// on the underlying storage's own terms (the core's storage layer
	// rejects true duplicates and gaps on its own).
	ProcessEvents(ctx context.Context, fromBlock, toBlock uint64, logs []types.Log) error
}
