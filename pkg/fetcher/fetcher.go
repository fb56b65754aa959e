// Package fetcher implements the block-range fetcher: a bounded-channel
// producer/consumer pair that pulls event logs for a single contract in
// parallel, out-of-order windows, and hands them to an EventProcessor
// strictly in ascending, contiguous order.
package fetcher

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/bridge-forest/pkg/ethrpc"
)

// chunk is one fetched, but not yet necessarily deliverable, block range.
type chunk struct {
	start, end uint64
	logs       []types.Log
}

// Config holds one contract stream's fetch tunables, mirroring the core's
// documented defaults.
type Config struct {
	Name            string
	ContractAddress common.Address
	Topics          []common.Hash
	BlockRange      uint64
	ParallelQueries int
	MaxQueueSize    int
	PollInterval    time.Duration
	SyncTag         string
}

// Fetcher drives one contract's producer/consumer pair against a single
// EventProcessor.
type Fetcher struct {
	cfg       Config
	client    ethrpc.Client
	processor EventProcessor
	logger    *zap.SugaredLogger
}

// New constructs a Fetcher. The processor's own cursor determines where the
// fetch resumes: Run starts at LatestProcessedBlock()+1, or 0 if nil.
func New(cfg Config, client ethrpc.Client, processor EventProcessor, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		client:    client,
		processor: processor,
		logger:    logger.Sugar().With("stream", cfg.Name),
	}
}

// Run blocks until ctx is cancelled or either half of the pipeline returns
// an unrecoverable error.
func (f *Fetcher) Run(ctx context.Context) error {
	latest, err := f.processor.LatestProcessedBlock(ctx)
	if err != nil {
		return errors.Wrap(err, "read latest processed block")
	}
	var startingBlock uint64
	if latest != nil {
		startingBlock = *latest + 1
	}
	f.logger.Infow("starting fetcher", "startingBlock", startingBlock)

	ch := make(chan chunk, f.cfg.MaxQueueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		return f.produce(gctx, startingBlock, ch)
	})
	g.Go(func() error {
		return f.consume(gctx, startingBlock, ch)
	})

	return g.Wait()
}

// produce polls the configured sync tag and fetches every not-yet-queued
// block range up to it, parallelizing across windows of cfg.BlockRange
// blocks. Results arrive on ch out of order; consume reassembles them.
func (f *Fetcher) produce(ctx context.Context, startingBlock uint64, ch chan<- chunk) error {
	var processedTo uint64
	if startingBlock > 0 {
		processedTo = startingBlock - 1
	}

	for {
		tip, err := ethrpc.TipHeader(ctx, f.client, f.cfg.SyncTag)
		if err != nil {
			return errors.Wrap(err, "fetch tip header")
		}
		f.logger.Debugw("polled tip", "tip", tip, "processedTo", processedTo)

		if tip <= processedTo {
			select {
			case <-time.After(f.cfg.PollInterval):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var starts []uint64
		for s := processedTo + 1; s <= tip; s += f.cfg.BlockRange {
			starts = append(starts, s)
		}

		fg, fctx := errgroup.WithContext(ctx)
		fg.SetLimit(f.cfg.ParallelQueries)
		for _, start := range starts {
			start := start
			fg.Go(func() error {
				end := start + f.cfg.BlockRange - 1
				if end > tip {
					end = tip
				}

				q := ethrpc.BuildQuery(f.cfg.ContractAddress, start, end, f.cfg.Topics...)
				logs, err := f.client.FilterLogs(fctx, q)
				if err != nil {
					return errors.Wrapf(err, "filter logs [%d-%d]", start, end)
				}
				f.logger.Debugw("fetched window", "start", start, "end", end, "logs", len(logs))

				select {
				case ch <- chunk{start: start, end: end, logs: logs}:
					return nil
				case <-fctx.Done():
					return fctx.Err()
				}
			})
		}
		if err := fg.Wait(); err != nil {
			return err
		}

		processedTo = tip
	}
}

// consume reassembles chunks into contiguous, ascending order and hands
// each run of contiguous chunks to the processor as soon as it is
// available, regardless of the order windows finished fetching in.
func (f *Fetcher) consume(ctx context.Context, startingBlock uint64, ch <-chan chunk) error {
	var lastProcessed uint64
	if startingBlock > 0 {
		lastProcessed = startingBlock - 1
	}

	buffer := make(map[uint64]chunk)

	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return nil
			}
			buffer[c.start] = c

			for {
				next, ok := buffer[lastProcessed+1]
				if !ok {
					break
				}
				delete(buffer, next.start)

				f.logger.Infow("processing window", "from", next.start, "to", next.end, "logs", len(next.logs))
				if err := f.processor.ProcessEvents(ctx, next.start, next.end, next.logs); err != nil {
					return errors.Wrapf(err, "process events [%d-%d]", next.start, next.end)
				}
				lastProcessed = next.end
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
