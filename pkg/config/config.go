// Package config holds the core's typed configuration surface: per-chain
// RPC wiring, contract addresses, and the tunables of the block-range
// fetcher (spec.md §4.3).
package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SyncTag selects which block tag a fetcher polls for its "tip": the
// latest block, the chain's finalized block, or its safe block.
type SyncTag string

const (
	SyncTagLatest    SyncTag = "latest"
	SyncTagFinalized SyncTag = "finalized"
	SyncTagSafe      SyncTag = "safe"
)

func (t SyncTag) String() string { return string(t) }

// Valid reports whether t is one of the recognized sync tags.
func (t SyncTag) Valid() bool {
	switch t {
	case SyncTagLatest, SyncTagFinalized, SyncTagSafe:
		return true
	default:
		return false
	}
}

// ChainRPC pairs an L2 chain id with its RPC endpoint.
type ChainRPC struct {
	ChainID uint32
	RPCURL  string
}

// Default fetcher tunables, per spec.md §4.3.
const (
	DefaultBlockRange      uint64 = 10_000
	DefaultParallelQueries int    = 5
	DefaultMaxQueueSize    int    = 100
	DefaultPollInterval           = 3 // seconds
	DefaultL1InfoConcurrency int  = 15

	// Retry/backoff layer defaults, per spec.md §4.3.
	DefaultMaxRetries      int = 100
	DefaultInitialBackoffMillis int64 = 2_000
	DefaultRateLimitCUPS   int = 100
)

// Config is the core's entire external configuration surface (spec.md §6's
// informative CLI table), expanded with the fetcher tunables and the
// optional ambient pieces (HTTP address, contract-count cache).
type Config struct {
	L1RPC                string
	L2RPCs               []ChainRPC
	BridgeAddress        common.Address
	GERAddress           common.Address
	RollupManagerAddress common.Address
	DBPath               string

	BlockRange       uint64
	ParallelQueries  int
	MaxQueueSize     int
	PollIntervalSecs int
	SyncTag          SyncTag

	HTTPAddr         string
	ContractCacheTTLSecs int
	RedisAddr        string
}

// WithDefaults returns a copy of c with zero-valued tunables replaced by
// their spec defaults.
func (c Config) WithDefaults() Config {
	if c.BlockRange == 0 {
		c.BlockRange = DefaultBlockRange
	}
	if c.ParallelQueries == 0 {
		c.ParallelQueries = DefaultParallelQueries
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.PollIntervalSecs == 0 {
		c.PollIntervalSecs = DefaultPollInterval
	}
	if c.SyncTag == "" {
		c.SyncTag = SyncTagFinalized
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.ContractCacheTTLSecs == 0 {
		c.ContractCacheTTLSecs = 2
	}
	return c
}

// Validate checks the fields the core cannot safely proceed without.
func (c Config) Validate() error {
	if c.L1RPC == "" {
		return fmt.Errorf("l1 rpc url is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if !c.SyncTag.Valid() {
		return fmt.Errorf("invalid sync tag: %s", c.SyncTag)
	}
	seen := make(map[uint32]struct{}, len(c.L2RPCs))
	for _, rpc := range c.L2RPCs {
		if rpc.ChainID == 0 {
			return fmt.Errorf("l2 chain id must be non-zero")
		}
		if _, dup := seen[rpc.ChainID]; dup {
			return fmt.Errorf("duplicate l2 chain id %d", rpc.ChainID)
		}
		seen[rpc.ChainID] = struct{}{}
	}
	return nil
}
