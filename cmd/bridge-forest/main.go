// Command bridge-forest runs the bridge event indexer: one fetcher per
// contract stream feeding the shared Merkle forest, and the read-only HTTP
// API over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/bridge-forest/pkg/api"
	"github.com/Layr-Labs/bridge-forest/pkg/config"
	"github.com/Layr-Labs/bridge-forest/pkg/contractcache"
	"github.com/Layr-Labs/bridge-forest/pkg/ethrpc"
	"github.com/Layr-Labs/bridge-forest/pkg/fetcher"
	"github.com/Layr-Labs/bridge-forest/pkg/logging"
	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
	"github.com/Layr-Labs/bridge-forest/pkg/processors"
)

func main() {
	app := &cli.App{
		Name:  "bridge-forest",
		Usage: "index cross-chain bridge events into a queryable Merkle forest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "l1-rpc", Required: true, Usage: "L1 execution client JSON-RPC URL"},
			&cli.StringSliceFlag{Name: "l2-rpc", Usage: "chainID=URL pairs, one per L2 bridge to index"},
			&cli.StringFlag{Name: "bridge-address", Required: true},
			&cli.StringFlag{Name: "ger-address", Required: true},
			&cli.StringFlag{Name: "rollup-manager-address", Required: true},
			&cli.StringFlag{Name: "db-path", Value: "./bridge-forest-data"},
			&cli.StringFlag{Name: "sync-tag", Value: "finalized"},
			&cli.StringFlag{Name: "http-addr", Value: ":8080"},
			&cli.StringFlag{Name: "redis-addr", Usage: "optional redis address for the shared contract-count cache"},
			&cli.Uint64Flag{Name: "block-range", Value: config.DefaultBlockRange},
			&cli.IntFlag{Name: "parallel-queries", Value: config.DefaultParallelQueries},
			&cli.IntFlag{Name: "max-queue-size", Value: config.DefaultMaxQueueSize},
			&cli.BoolFlag{Name: "verbose"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	l2RPCs, err := parseL2RPCs(c.StringSlice("l2-rpc"))
	if err != nil {
		return err
	}

	cfg := config.Config{
		L1RPC:                c.String("l1-rpc"),
		L2RPCs:               l2RPCs,
		BridgeAddress:        common.HexToAddress(c.String("bridge-address")),
		GERAddress:           common.HexToAddress(c.String("ger-address")),
		RollupManagerAddress: common.HexToAddress(c.String("rollup-manager-address")),
		DBPath:               c.String("db-path"),
		BlockRange:           c.Uint64("block-range"),
		ParallelQueries:      c.Int("parallel-queries"),
		MaxQueueSize:         c.Int("max-queue-size"),
		SyncTag:              config.SyncTag(c.String("sync-tag")),
		HTTPAddr:             c.String("http-addr"),
		RedisAddr:            c.String("redis-addr"),
	}.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(c.Bool("verbose"))
	if err != nil {
		return errors.Wrap(err, "build logger")
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return indexAndServe(ctx, cfg, logger)
}

func parseL2RPCs(pairs []string) ([]config.ChainRPC, error) {
	out := make([]config.ChainRPC, 0, len(pairs))
	for _, pair := range pairs {
		var chainID uint32
		var url string
		if _, err := fmt.Sscanf(pair, "%d=%s", &chainID, &url); err != nil {
			return nil, errors.Wrapf(err, "invalid --l2-rpc %q, expected chainID=URL", pair)
		}
		out = append(out, config.ChainRPC{ChainID: chainID, RPCURL: url})
	}
	return out, nil
}

// indexAndServe wires the forest, every fetcher/processor pair, and the
// HTTP API, then runs them all under one errgroup until ctx is cancelled.
func indexAndServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	forest, err := merkle.Open(cfg.DBPath, logger)
	if err != nil {
		return errors.Wrap(err, "open forest")
	}
	defer forest.Close()

	l1Client, err := dialRetrying(ctx, cfg.L1RPC, logger)
	if err != nil {
		return errors.Wrap(err, "dial l1 rpc")
	}
	defer l1Client.Close()

	cache := buildCache(cfg)

	g, gctx := errgroup.WithContext(ctx)

	bridgeFetcher := fetcher.New(
		fetcher.Config{
			Name:            "l1-bridge",
			ContractAddress: cfg.BridgeAddress,
			Topics:          []common.Hash{processors.TopicBridgeEvent, processors.TopicClaimEvent, processors.TopicNewWrappedToken},
			BlockRange:      cfg.BlockRange,
			ParallelQueries: cfg.ParallelQueries,
			MaxQueueSize:    cfg.MaxQueueSize,
			PollInterval:    time.Duration(cfg.PollIntervalSecs) * time.Second,
			SyncTag:         cfg.SyncTag.String(),
		},
		l1Client,
		&processors.BridgeEventProcessor{Forest: forest, ChainID: 0, Logger: logger.Sugar()},
		logger,
	)
	g.Go(func() error { return bridgeFetcher.Run(gctx) })

	l1InfoFetcher := fetcher.New(
		fetcher.Config{
			Name:            "l1-info-tree",
			ContractAddress: cfg.GERAddress,
			Topics:          []common.Hash{processors.TopicUpdateL1InfoTree, processors.TopicUpdateL1InfoTreeV2},
			BlockRange:      cfg.BlockRange,
			ParallelQueries: cfg.ParallelQueries,
			MaxQueueSize:    cfg.MaxQueueSize,
			PollInterval:    time.Duration(cfg.PollIntervalSecs) * time.Second,
			SyncTag:         cfg.SyncTag.String(),
		},
		l1Client,
		&processors.L1InfoEventProcessor{Forest: forest, Client: l1Client, Concurrency: config.DefaultL1InfoConcurrency, Logger: logger.Sugar()},
		logger,
	)
	g.Go(func() error { return l1InfoFetcher.Run(gctx) })

	rollupManagerFetcher := fetcher.New(
		fetcher.Config{
			Name:            "rollup-manager",
			ContractAddress: cfg.RollupManagerAddress,
			Topics: []common.Hash{
				processors.TopicCreateNewRollup,
				processors.TopicAddExistingRollup,
				processors.TopicVerifyBatchesTrustedAggregator,
				processors.TopicVerifyPessimisticStateTransition,
			},
			BlockRange:      cfg.BlockRange,
			ParallelQueries: cfg.ParallelQueries,
			MaxQueueSize:    cfg.MaxQueueSize,
			PollInterval:    time.Duration(cfg.PollIntervalSecs) * time.Second,
			SyncTag:         cfg.SyncTag.String(),
		},
		l1Client,
		&processors.RollupManagerEventProcessor{Forest: forest, Logger: logger.Sugar()},
		logger,
	)
	g.Go(func() error { return rollupManagerFetcher.Run(gctx) })

	l2Counters := make(map[uint32]*api.ContractCounter, len(cfg.L2RPCs))
	for _, l2 := range cfg.L2RPCs {
		l2 := l2
		l2Client, err := dialRetrying(ctx, l2.RPCURL, logger)
		if err != nil {
			return errors.Wrapf(err, "dial l2 rpc for chain %d", l2.ChainID)
		}
		defer l2Client.Close()

		l2BridgeFetcher := fetcher.New(
			fetcher.Config{
				Name:            fmt.Sprintf("l2-bridge-%d", l2.ChainID),
				ContractAddress: cfg.BridgeAddress,
				Topics:          []common.Hash{processors.TopicBridgeEvent, processors.TopicClaimEvent, processors.TopicNewWrappedToken},
				BlockRange:      cfg.BlockRange,
				ParallelQueries: cfg.ParallelQueries,
				MaxQueueSize:    cfg.MaxQueueSize,
				PollInterval:    time.Duration(cfg.PollIntervalSecs) * time.Second,
				SyncTag:         cfg.SyncTag.String(),
			},
			l2Client,
			&processors.BridgeEventProcessor{Forest: forest, ChainID: l2.ChainID, Logger: logger.Sugar()},
			logger,
		)
		g.Go(func() error { return l2BridgeFetcher.Run(gctx) })

		l2Counters[l2.ChainID] = api.NewContractCounter(l2Client, cache, cfg.BridgeAddress)
	}

	l1BridgeCounter := api.NewContractCounter(l1Client, cache, cfg.BridgeAddress)
	l1InfoCounter := api.NewContractCounter(l1Client, cache, cfg.GERAddress)
	server := api.NewServer(cfg.HTTPAddr, forest, l1BridgeCounter, l1InfoCounter, l2Counters, logger)
	server.Start()

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && errors.Cause(err) != context.Canceled {
		return err
	}
	return nil
}

func dialRetrying(ctx context.Context, url string, logger *zap.Logger) (ethrpc.Client, error) {
	client, err := ethrpc.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return ethrpc.WithRetry(client, ethrpc.DefaultRetryConfig, logger), nil
}

func buildCache(cfg config.Config) contractcache.Cache {
	ttl := time.Duration(cfg.ContractCacheTTLSecs) * time.Second
	if cfg.RedisAddr != "" {
		return contractcache.NewRedisCache(cfg.RedisAddr, ttl)
	}
	return contractcache.NewMemoryCache(ttl)
}
