package ethrpc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RetryConfig configures the backoff/rate-limit decorator wrapping a Client.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
	// RateLimitCUPS bounds calls-per-second against the underlying node,
	// independent of retry pressure.
	RateLimitCUPS int
}

// DefaultRetryConfig matches the core's documented RPC tunables.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     100,
	InitialBackoff:  2 * time.Second,
	MaxBackoff:      30 * time.Second,
	BackoffMultiple: 2.0,
	RateLimitCUPS:   100,
}

// retryingClient decorates a Client with exponential backoff and a token
// bucket limiter, so a flaky or rate-limiting upstream node degrades the
// fetcher's throughput instead of its correctness.
type retryingClient struct {
	inner   Client
	cfg     RetryConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// WithRetry wraps c with the retry/rate-limit decorator.
func WithRetry(c Client, cfg RetryConfig, logger *zap.Logger) Client {
	return &retryingClient{
		inner:   c,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitCUPS), cfg.RateLimitCUPS),
		logger:  logger,
	}
}

func (r *retryingClient) Close() { r.inner.Close() }

func (r *retryingClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	err := r.do(ctx, "FilterLogs", func() error {
		var callErr error
		out, callErr = r.inner.FilterLogs(ctx, q)
		return callErr
	})
	return out, err
}

func (r *retryingClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var out *types.Header
	err := r.do(ctx, "HeaderByNumber", func() error {
		var callErr error
		out, callErr = r.inner.HeaderByNumber(ctx, number)
		return callErr
	})
	return out, err
}

func (r *retryingClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "CallContract", func() error {
		var callErr error
		out, callErr = r.inner.CallContract(ctx, msg, blockNumber)
		return callErr
	})
	return out, err
}

// do runs fn with exponential backoff, bounded by cfg.MaxAttempts, and
// respects the rate limiter before every attempt.
func (r *retryingClient) do(ctx context.Context, op string, fn func() error) error {
	backoff := r.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "%s: rate limiter", op)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if r.logger != nil {
			r.logger.Warn("rpc call failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * r.cfg.BackoffMultiple)
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}

	return errors.Wrapf(lastErr, "%s: exhausted %d attempts", op, r.cfg.MaxAttempts)
}
