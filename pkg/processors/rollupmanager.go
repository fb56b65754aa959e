package processors

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
)

// RollupManagerEventProcessor adapts rollup lifecycle and batch-verification
// events into RollupExit leaves: registration writes a zero exit root,
// verification advances it.
type RollupManagerEventProcessor struct {
	Forest *merkle.Forest
	Logger *zap.SugaredLogger
}

func (p *RollupManagerEventProcessor) LatestProcessedBlock(_ context.Context) (*uint64, error) {
	return p.Forest.GetLatestBlock(merkle.RollupExit())
}

func (p *RollupManagerEventProcessor) ProcessEvents(_ context.Context, _, toBlock uint64, logs []types.Log) error {
	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case TopicCreateNewRollup:
			ev, err := decodeCreateNewRollup(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed CreateNewRollup", "error", err, "block", log.BlockNumber)
				continue
			}
			if err := p.Forest.SetRollupLeaf(ev.RollupID, merkle.Hash{}, log.BlockNumber); err != nil {
				return errors.Wrapf(err, "register rollup %d", ev.RollupID)
			}
		case TopicAddExistingRollup:
			ev, err := decodeAddExistingRollup(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed AddExistingRollup", "error", err, "block", log.BlockNumber)
				continue
			}
			if err := p.Forest.SetRollupLeaf(ev.RollupID, merkle.Hash{}, log.BlockNumber); err != nil {
				return errors.Wrapf(err, "register rollup %d", ev.RollupID)
			}
		case TopicVerifyBatchesTrustedAggregator:
			ev, err := decodeVerifyBatchesTrustedAggregator(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed VerifyBatchesTrustedAggregator", "error", err, "block", log.BlockNumber)
				continue
			}
			if err := p.Forest.SetRollupLeaf(ev.RollupID, merkle.Hash(ev.ExitRoot), log.BlockNumber); err != nil {
				return errors.Wrapf(err, "advance exit root rollup %d", ev.RollupID)
			}
		case TopicVerifyPessimisticStateTransition:
			// Matched by topic but neither decoded nor acted on at the
			// core level; see the open question on sovereign-chain event
			// handling.
		}
	}

	return p.Forest.TouchLatestBlock(merkle.RollupExit(), toBlock)
}
