package processors

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Topic hashes every processor dispatches on. AddExistingRollup's topic is
// shared by both the legacy and current contract ABI, by construction (see
// abi.go); decodeAddExistingRollup tells the two layouts apart.
var (
	TopicBridgeEvent                       = contractABI.Events["BridgeEvent"].ID
	TopicClaimEvent                        = contractABI.Events["ClaimEvent"].ID
	TopicNewWrappedToken                   = contractABI.Events["NewWrappedToken"].ID
	TopicUpdateL1InfoTree                  = contractABI.Events["UpdateL1InfoTree"].ID
	TopicUpdateL1InfoTreeV2                = contractABI.Events["UpdateL1InfoTreeV2"].ID
	TopicCreateNewRollup                   = contractABI.Events["CreateNewRollup"].ID
	TopicAddExistingRollup                 = contractABI.Events["AddExistingRollup"].ID
	TopicVerifyBatchesTrustedAggregator    = contractABI.Events["VerifyBatchesTrustedAggregator"].ID
	TopicVerifyPessimisticStateTransition  = contractABI.Events["VerifyPessimisticStateTransition"].ID
)

// addExistingRollupNewArgs decodes the current contract's trailing
// programVKey field, present only when the event carries 6 ABI words of
// data instead of the legacy layout's 5.
var addExistingRollupNewArgs = abi.Arguments{
	{Name: "forkID", Type: mustType("uint64")},
	{Name: "rollupAddress", Type: mustType("address")},
	{Name: "chainID", Type: mustType("uint64")},
	{Name: "rollupCompatibilityID", Type: mustType("uint8")},
	{Name: "lastVerifiedBatchBeforeUpgrade", Type: mustType("uint64")},
	{Name: "programVKey", Type: mustType("bytes32")},
}

// addExistingRollupOldArgs returns the legacy (non-indexed) layout, taken
// from contractABI.Events["AddExistingRollup"].Inputs.NonIndexed(); test
// fixtures use it to pack legacy payloads.
func addExistingRollupOldArgs() abi.Arguments {
	return contractABI.Events["AddExistingRollup"].Inputs.NonIndexed()
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func unpackNonIndexed(eventName string, data []byte, out interface{}) error {
	return contractABI.Events[eventName].Inputs.NonIndexed().UnpackIntoInterface(out, data)
}

func indexedUint32(log types.Log, n int) (uint32, error) {
	if len(log.Topics) <= n {
		return 0, errors.Errorf("missing indexed topic %d", n)
	}
	return uint32(new(big.Int).SetBytes(log.Topics[n].Bytes()).Uint64()), nil
}

func indexedAddress(log types.Log, n int) (common.Address, error) {
	if len(log.Topics) <= n {
		return common.Address{}, errors.Errorf("missing indexed topic %d", n)
	}
	return common.BytesToAddress(log.Topics[n].Bytes()), nil
}

func decodeBridgeEvent(log types.Log) (BridgeEvent, error) {
	var raw struct {
		LeafType           uint8
		OriginNetwork      uint32
		OriginAddress      common.Address
		DestinationNetwork uint32
		DestinationAddress common.Address
		Amount             *big.Int
		Metadata           []byte
		DepositCount       uint32
	}
	if err := unpackNonIndexed("BridgeEvent", log.Data, &raw); err != nil {
		return BridgeEvent{}, errors.Wrap(err, "decode BridgeEvent")
	}
	return BridgeEvent{
		LeafType:           raw.LeafType,
		OriginNetwork:      raw.OriginNetwork,
		OriginAddress:      raw.OriginAddress,
		DestinationNetwork: raw.DestinationNetwork,
		DestinationAddress: raw.DestinationAddress,
		Amount:             raw.Amount,
		Metadata:           raw.Metadata,
		DepositCount:       raw.DepositCount,
	}, nil
}

func decodeClaimEvent(log types.Log) (ClaimEvent, error) {
	var raw struct {
		GlobalIndex        *big.Int
		OriginNetwork      uint32
		OriginAddress      common.Address
		DestinationAddress common.Address
		Amount             *big.Int
	}
	if err := unpackNonIndexed("ClaimEvent", log.Data, &raw); err != nil {
		return ClaimEvent{}, errors.Wrap(err, "decode ClaimEvent")
	}
	return ClaimEvent(raw), nil
}

func decodeNewWrappedToken(log types.Log) (NewWrappedTokenEvent, error) {
	var raw struct {
		OriginNetwork       uint32
		OriginTokenAddress  common.Address
		WrappedTokenAddress common.Address
		Metadata            []byte
	}
	if err := unpackNonIndexed("NewWrappedToken", log.Data, &raw); err != nil {
		return NewWrappedTokenEvent{}, errors.Wrap(err, "decode NewWrappedToken")
	}
	return NewWrappedTokenEvent(raw), nil
}

func decodeUpdateL1InfoTree(log types.Log) (UpdateL1InfoTreeEvent, error) {
	var raw struct {
		MainnetExitRoot [32]byte
		RollupExitRoot  [32]byte
	}
	if err := unpackNonIndexed("UpdateL1InfoTree", log.Data, &raw); err != nil {
		return UpdateL1InfoTreeEvent{}, errors.Wrap(err, "decode UpdateL1InfoTree")
	}
	return UpdateL1InfoTreeEvent(raw), nil
}

func decodeUpdateL1InfoTreeV2(log types.Log) (UpdateL1InfoTreeV2Event, error) {
	var raw struct {
		CurrentL1InfoRoot [32]byte
		LeafCount         uint32
		BlockHash         [32]byte
		MinTimestamp      uint64
	}
	if err := unpackNonIndexed("UpdateL1InfoTreeV2", log.Data, &raw); err != nil {
		return UpdateL1InfoTreeV2Event{}, errors.Wrap(err, "decode UpdateL1InfoTreeV2")
	}
	return UpdateL1InfoTreeV2Event(raw), nil
}

func decodeCreateNewRollup(log types.Log) (RollupRegisteredEvent, error) {
	rollupID, err := indexedUint32(log, 1)
	if err != nil {
		return RollupRegisteredEvent{}, errors.Wrap(err, "decode CreateNewRollup")
	}
	return RollupRegisteredEvent{RollupID: rollupID}, nil
}

// decodeAddExistingRollup disambiguates the current vs legacy contract
// layout by data length: the current contract's ABI carries one extra
// trailing bytes32 (programVKey) the legacy one never emitted.
func decodeAddExistingRollup(log types.Log) (RollupRegisteredEvent, error) {
	rollupID, err := indexedUint32(log, 1)
	if err != nil {
		return RollupRegisteredEvent{}, errors.Wrap(err, "decode AddExistingRollup")
	}

	const wordSize = 32
	switch len(log.Data) {
	case 5 * wordSize:
		// legacy layout; no further fields this processor needs.
	case 6 * wordSize:
		var raw struct {
			ForkID                         uint64
			RollupAddress                  common.Address
			ChainID                        uint64
			RollupCompatibilityID          uint8
			LastVerifiedBatchBeforeUpgrade uint64
			ProgramVKey                    [32]byte
		}
		if err := addExistingRollupNewArgs.UnpackIntoInterface(&raw, log.Data); err != nil {
			return RollupRegisteredEvent{}, errors.Wrap(err, "decode AddExistingRollup (current layout)")
		}
	default:
		return RollupRegisteredEvent{}, errors.Errorf("decode AddExistingRollup: unexpected data length %d", len(log.Data))
	}

	return RollupRegisteredEvent{RollupID: rollupID}, nil
}

func decodeVerifyBatchesTrustedAggregator(log types.Log) (VerifyBatchesTrustedAggregatorEvent, error) {
	rollupID, err := indexedUint32(log, 1)
	if err != nil {
		return VerifyBatchesTrustedAggregatorEvent{}, errors.Wrap(err, "decode VerifyBatchesTrustedAggregator")
	}
	aggregator, err := indexedAddress(log, 2)
	if err != nil {
		return VerifyBatchesTrustedAggregatorEvent{}, errors.Wrap(err, "decode VerifyBatchesTrustedAggregator")
	}

	var raw struct {
		NumBatch  uint64
		StateRoot [32]byte
		ExitRoot  [32]byte
	}
	if err := unpackNonIndexed("VerifyBatchesTrustedAggregator", log.Data, &raw); err != nil {
		return VerifyBatchesTrustedAggregatorEvent{}, errors.Wrap(err, "decode VerifyBatchesTrustedAggregator")
	}

	return VerifyBatchesTrustedAggregatorEvent{
		RollupID:   rollupID,
		NumBatch:   raw.NumBatch,
		StateRoot:  raw.StateRoot,
		ExitRoot:   raw.ExitRoot,
		Aggregator: aggregator,
	}, nil
}
