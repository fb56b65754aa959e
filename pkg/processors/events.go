package processors

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BridgeEvent is a decoded bridge-out deposit: the raw material for a
// LocalExit leaf.
type BridgeEvent struct {
	LeafType           uint8
	OriginNetwork      uint32
	OriginAddress      common.Address
	DestinationNetwork uint32
	DestinationAddress common.Address
	Amount             *big.Int
	Metadata           []byte
	DepositCount       uint32
}

// ClaimEvent is decoded but, per the core's current scope, not acted on.
type ClaimEvent struct {
	GlobalIndex        *big.Int
	OriginNetwork      uint32
	OriginAddress      common.Address
	DestinationAddress common.Address
	Amount             *big.Int
}

// NewWrappedTokenEvent is decoded but not acted on.
type NewWrappedTokenEvent struct {
	OriginNetwork       uint32
	OriginTokenAddress  common.Address
	WrappedTokenAddress common.Address
	Metadata            []byte
}

// UpdateL1InfoTreeEvent is the V1 event, always present for every L1-info
// tree update.
type UpdateL1InfoTreeEvent struct {
	MainnetExitRoot [32]byte
	RollupExitRoot  [32]byte
}

// UpdateL1InfoTreeV2Event is the optional, same-transaction companion to
// UpdateL1InfoTreeEvent that supplies the timestamp and previous block hash
// directly, avoiding a block-header fetch.
type UpdateL1InfoTreeV2Event struct {
	CurrentL1InfoRoot [32]byte
	LeafCount         uint32
	BlockHash         [32]byte
	MinTimestamp      uint64
}

// RollupRegisteredEvent covers CreateNewRollup and both AddExistingRollup
// layouts: a rollup chain was registered with no exit root yet.
type RollupRegisteredEvent struct {
	RollupID uint32
}

// VerifyBatchesTrustedAggregatorEvent advances a rollup's exit root.
type VerifyBatchesTrustedAggregatorEvent struct {
	RollupID   uint32
	NumBatch   uint64
	StateRoot  [32]byte
	ExitRoot   [32]byte
	Aggregator common.Address
}
