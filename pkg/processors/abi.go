package processors

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// eventsABIJSON declares every bridge, L1-info, and rollup-manager event
// this core decodes. Field names and layouts mirror the public
// PolygonZkEVMBridgeV2 / PolygonZkEVMGlobalExitRootV2 / PolygonRollupManager
// contracts. AddExistingRollup is declared once: the legacy and current
// contract versions emit it under the identical topic hash, with the
// current version appending a trailing programVKey field.
// decodeAddExistingRollup tells them apart by payload length rather than by topic.
const eventsABIJSON = `[
  {"anonymous": false, "name": "BridgeEvent", "type": "event", "inputs": [
    {"name": "leafType", "type": "uint8", "indexed": false},
    {"name": "originNetwork", "type": "uint32", "indexed": false},
    {"name": "originAddress", "type": "address", "indexed": false},
    {"name": "destinationNetwork", "type": "uint32", "indexed": false},
    {"name": "destinationAddress", "type": "address", "indexed": false},
    {"name": "amount", "type": "uint256", "indexed": false},
    {"name": "metadata", "type": "bytes", "indexed": false},
    {"name": "depositCount", "type": "uint32", "indexed": false}
  ]},
  {"anonymous": false, "name": "ClaimEvent", "type": "event", "inputs": [
    {"name": "globalIndex", "type": "uint256", "indexed": false},
    {"name": "originNetwork", "type": "uint32", "indexed": false},
    {"name": "originAddress", "type": "address", "indexed": false},
    {"name": "destinationAddress", "type": "address", "indexed": false},
    {"name": "amount", "type": "uint256", "indexed": false}
  ]},
  {"anonymous": false, "name": "NewWrappedToken", "type": "event", "inputs": [
    {"name": "originNetwork", "type": "uint32", "indexed": false},
    {"name": "originTokenAddress", "type": "address", "indexed": false},
    {"name": "wrappedTokenAddress", "type": "address", "indexed": false},
    {"name": "metadata", "type": "bytes", "indexed": false}
  ]},
  {"anonymous": false, "name": "UpdateL1InfoTree", "type": "event", "inputs": [
    {"name": "mainnetExitRoot", "type": "bytes32", "indexed": false},
    {"name": "rollupExitRoot", "type": "bytes32", "indexed": false}
  ]},
  {"anonymous": false, "name": "UpdateL1InfoTreeV2", "type": "event", "inputs": [
    {"name": "currentL1InfoRoot", "type": "bytes32", "indexed": false},
    {"name": "leafCount", "type": "uint32", "indexed": false},
    {"name": "blockhash", "type": "bytes32", "indexed": false},
    {"name": "minTimestamp", "type": "uint64", "indexed": false}
  ]},
  {"anonymous": false, "name": "CreateNewRollup", "type": "event", "inputs": [
    {"name": "rollupID", "type": "uint32", "indexed": true},
    {"name": "rollupTypeID", "type": "uint32", "indexed": false},
    {"name": "rollupAddress", "type": "address", "indexed": false},
    {"name": "chainID", "type": "uint64", "indexed": false},
    {"name": "gasTokenAddress", "type": "address", "indexed": false}
  ]},
  {"anonymous": false, "name": "AddExistingRollup", "type": "event", "inputs": [
    {"name": "rollupID", "type": "uint32", "indexed": true},
    {"name": "forkID", "type": "uint64", "indexed": false},
    {"name": "rollupAddress", "type": "address", "indexed": false},
    {"name": "chainID", "type": "uint64", "indexed": false},
    {"name": "rollupCompatibilityID", "type": "uint8", "indexed": false},
    {"name": "lastVerifiedBatchBeforeUpgrade", "type": "uint64", "indexed": false}
  ]},
  {"anonymous": false, "name": "VerifyBatchesTrustedAggregator", "type": "event", "inputs": [
    {"name": "rollupID", "type": "uint32", "indexed": true},
    {"name": "numBatch", "type": "uint64", "indexed": false},
    {"name": "stateRoot", "type": "bytes32", "indexed": false},
    {"name": "exitRoot", "type": "bytes32", "indexed": false},
    {"name": "aggregator", "type": "address", "indexed": true}
  ]},
  {"anonymous": false, "name": "VerifyPessimisticStateTransition", "type": "event", "inputs": [
    {"name": "rollupID", "type": "uint32", "indexed": true},
    {"name": "newPessimisticRoot", "type": "bytes32", "indexed": false}
  ]}
]`

// contractABI is parsed once and shared by every decoder in this package.
var contractABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(eventsABIJSON))
	if err != nil {
		panic(err)
	}
	contractABI = parsed
}
