// Package ethrpc wraps go-ethereum's ethclient behind a narrow interface so
// the fetcher and processors depend on the calls they actually make, and so
// tests can substitute a FakeClient instead of dialing a node.
package ethrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the subset of ethclient.Client the core needs: log retrieval
// for event scanning, block headers for tip-tracking and L1-info fallback,
// and bare contract calls for the live deposit-count cache.
type Client interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dial connects to an execution client's JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (Client, error) {
	return ethclient.DialContext(ctx, url)
}

// Sync tags resolve to the pseudo block numbers the JSON-RPC spec reserves
// for them; HeaderByNumber accepts these directly.
var (
	LatestBlock    = big.NewInt(rpc.LatestBlockNumber.Int64())
	FinalizedBlock = big.NewInt(rpc.FinalizedBlockNumber.Int64())
	SafeBlock      = big.NewInt(rpc.SafeBlockNumber.Int64())
)

// BlockNumberForTag maps a config.SyncTag string to the sentinel
// big.Int HeaderByNumber expects.
func BlockNumberForTag(tag string) *big.Int {
	switch tag {
	case "finalized":
		return FinalizedBlock
	case "safe":
		return SafeBlock
	default:
		return LatestBlock
	}
}

// TipHeader fetches the header for the configured sync tag and returns its
// block number.
func TipHeader(ctx context.Context, c Client, tag string) (uint64, error) {
	h, err := c.HeaderByNumber(ctx, BlockNumberForTag(tag))
	if err != nil {
		return 0, err
	}
	return h.Number.Uint64(), nil
}

// BuildQuery constructs the filter query for one [fromBlock, toBlock] range
// against a single contract address, matching any of the given topics.
func BuildQuery(address common.Address, fromBlock, toBlock uint64, topics ...common.Hash) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{address},
	}
	if len(topics) > 0 {
		q.Topics = [][]common.Hash{topics}
	}
	return q
}
