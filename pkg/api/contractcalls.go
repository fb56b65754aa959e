package api

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/Layr-Labs/bridge-forest/pkg/contractcache"
	"github.com/Layr-Labs/bridge-forest/pkg/ethrpc"
)

// depositCountSelector is the 4-byte selector of depositCount() view,
// shared by the bridge and L1-info-tree contracts.
var depositCountSelector = crypto.Keccak256([]byte("depositCount()"))[:4]

// ContractCounter reads a contract's live depositCount(), through an
// optional short-TTL cache so a burst of sync-status polling doesn't
// become a burst of eth_call traffic.
type ContractCounter struct {
	client  ethrpc.Client
	cache   contractcache.Cache
	address common.Address
}

// NewContractCounter builds a counter for one deployed contract.
func NewContractCounter(client ethrpc.Client, cache contractcache.Cache, address common.Address) *ContractCounter {
	return &ContractCounter{client: client, cache: cache, address: address}
}

// DepositCount returns the contract's current depositCount(), preferring a
// cached value when one is fresh.
func (c *ContractCounter) DepositCount(ctx context.Context) (uint64, error) {
	key := c.address.Hex()
	if c.cache != nil {
		if count, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			return count, nil
		}
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: depositCountSelector,
	}, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "call depositCount() on %s", c.address.Hex())
	}
	if len(out) < 32 {
		return 0, errors.Errorf("depositCount() on %s: short return data", c.address.Hex())
	}
	count := new(big.Int).SetBytes(out[len(out)-32:]).Uint64()

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, count)
	}
	return count, nil
}
