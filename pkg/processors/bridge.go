package processors

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
)

// BridgeEventProcessor adapts one chain's bridge contract log stream into
// LocalExit(chainID) leaves. ClaimEvent and NewWrappedToken are decoded for
// completeness but not acted on, per the core's current scope.
type BridgeEventProcessor struct {
	Forest  *merkle.Forest
	ChainID uint32
	Logger  *zap.SugaredLogger
}

func (p *BridgeEventProcessor) LatestProcessedBlock(_ context.Context) (*uint64, error) {
	return p.Forest.GetLatestBlock(merkle.LocalExit(p.ChainID))
}

func (p *BridgeEventProcessor) ProcessEvents(_ context.Context, _, toBlock uint64, logs []types.Log) error {
	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case TopicBridgeEvent:
			ev, err := decodeBridgeEvent(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed BridgeEvent", "error", err, "block", log.BlockNumber)
				continue
			}
			leaf := merkle.BridgeLeaf{
				LeafType:           ev.LeafType,
				OriginNetwork:      ev.OriginNetwork,
				OriginAddress:      ev.OriginAddress,
				DestinationNetwork: ev.DestinationNetwork,
				DestinationAddress: ev.DestinationAddress,
				Amount:             uint256.MustFromBig(ev.Amount),
				Metadata:           ev.Metadata,
				DepositCount:       ev.DepositCount,
			}
			if err := p.Forest.AppendBridgeLeaves(p.ChainID, []merkle.BridgeLeaf{leaf}, log.BlockNumber); err != nil {
				return errors.Wrapf(err, "append bridge leaf chain=%d deposit=%d", p.ChainID, ev.DepositCount)
			}
		case TopicClaimEvent:
			if _, err := decodeClaimEvent(log); err != nil {
				p.Logger.Warnw("skipping malformed ClaimEvent", "error", err, "block", log.BlockNumber)
			}
		case TopicNewWrappedToken:
			if _, err := decodeNewWrappedToken(log); err != nil {
				p.Logger.Warnw("skipping malformed NewWrappedToken", "error", err, "block", log.BlockNumber)
			}
		}
	}

	// latest_block advances to the end of the window even if it contained
	// no bridge leaves; append guards make this safe to re-fetch.
	return p.Forest.TouchLatestBlock(merkle.LocalExit(p.ChainID), toBlock)
}
