package processors

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/bridge-forest/pkg/ethrpc"
	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
)

// DefaultL1InfoConcurrency bounds the parallel block-header fetches the
// processor performs for V1 events with no V2 companion; a latency
// optimization, not a correctness requirement.
const DefaultL1InfoConcurrency = 15

// L1InfoEventProcessor pairs every UpdateL1InfoTree (V1) event with its
// same-transaction UpdateL1InfoTreeV2 companion when one exists, falling
// back to a block-header fetch when it doesn't.
type L1InfoEventProcessor struct {
	Forest      *merkle.Forest
	Client      ethrpc.Client
	Concurrency int
	Logger      *zap.SugaredLogger
}

func (p *L1InfoEventProcessor) LatestProcessedBlock(_ context.Context) (*uint64, error) {
	return p.Forest.GetLatestBlock(merkle.L1Info())
}

type v1WithLog struct {
	event UpdateL1InfoTreeEvent
	log   types.Log
}

func (p *L1InfoEventProcessor) ProcessEvents(ctx context.Context, _, toBlock uint64, logs []types.Log) error {
	var v1Events []v1WithLog
	v2ByTx := make(map[common.Hash]UpdateL1InfoTreeV2Event)

	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case TopicUpdateL1InfoTree:
			ev, err := decodeUpdateL1InfoTree(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed UpdateL1InfoTree", "error", err, "block", log.BlockNumber)
				continue
			}
			v1Events = append(v1Events, v1WithLog{event: ev, log: log})
		case TopicUpdateL1InfoTreeV2:
			ev, err := decodeUpdateL1InfoTreeV2(log)
			if err != nil {
				p.Logger.Warnw("skipping malformed UpdateL1InfoTreeV2", "error", err, "block", log.BlockNumber)
				continue
			}
			v2ByTx[log.TxHash] = ev
		}
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultL1InfoConcurrency
	}

	leaves := make([]merkle.L1InfoLeaf, len(v1Events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, v1 := range v1Events {
		i, v1 := i, v1
		g.Go(func() error {
			leaf := merkle.L1InfoLeaf{
				MainnetExitRoot: merkle.Hash(v1.event.MainnetExitRoot),
				RollupExitRoot:  merkle.Hash(v1.event.RollupExitRoot),
			}
			if v2, ok := v2ByTx[v1.log.TxHash]; ok {
				leaf.Source = merkle.L1InfoV2Source{
					MinTimestamp:      v2.MinTimestamp,
					BlockHash:         merkle.Hash(v2.BlockHash),
					LeafCount:         v2.LeafCount,
					CurrentL1InfoRoot: merkle.Hash(v2.CurrentL1InfoRoot),
				}
				leaves[i] = leaf
				return nil
			}

			header, err := p.Client.HeaderByNumber(gctx, new(big.Int).SetUint64(v1.log.BlockNumber))
			if err != nil {
				return errors.Wrapf(err, "fetch block %d for l1-info fallback", v1.log.BlockNumber)
			}
			leaf.Source = merkle.L1InfoBlockSource{
				Timestamp:  header.Time,
				ParentHash: merkle.Hash(header.ParentHash),
			}
			leaves[i] = leaf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, leaf := range leaves {
		if err := p.Forest.AppendL1InfoLeaf(leaf.HashedLeaf(), v1Events[i].log.BlockNumber); err != nil {
			return errors.Wrap(err, "append l1-info leaf")
		}
	}

	return p.Forest.TouchLatestBlock(merkle.L1Info(), toBlock)
}
