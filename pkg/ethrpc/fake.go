package ethrpc

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FakeClient is a deterministic, in-memory Client test double: headers and
// logs are pre-seeded, and block hashes are generated from the block
// number so tests can assert on them without a live node.
type FakeClient struct {
	mu      sync.Mutex
	headers map[uint64]*types.Header
	logs    []types.Log
	tip     uint64
	calls   []string
}

// NewFakeClient returns an empty FakeClient; use SetHeader/AddLog to seed it.
func NewFakeClient() *FakeClient {
	return &FakeClient{headers: make(map[uint64]*types.Header)}
}

// generateBlockHash derives a deterministic 32-byte hash from a block
// number, so FakeClient headers are reproducible across test runs.
func generateBlockHash(number uint64) common.Hash {
	var h common.Hash
	big.NewInt(0).SetUint64(number).FillBytes(h[:])
	h[0] = 0xaa // avoids colliding with the zero hash at number 0
	return h
}

// SetHeader seeds (or overwrites) the header for a block number, filling in
// a deterministic hash and parent hash if unset.
func (f *FakeClient) SetHeader(number uint64, h *types.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h == nil {
		h = &types.Header{}
	}
	h.Number = new(big.Int).SetUint64(number)
	if h.ParentHash == (common.Hash{}) && number > 0 {
		h.ParentHash = generateBlockHash(number - 1)
	}
	f.headers[number] = h
	if number > f.tip {
		f.tip = number
	}
}

// SetTip sets the number HeaderByNumber returns for the "latest" tag.
func (f *FakeClient) SetTip(number uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tip = number
}

// AddLog appends a log to the set FilterLogs scans.
func (f *FakeClient) AddLog(l types.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
}

// Calls returns the ordered list of method names invoked, for assertions
// about retry/call counts in tests.
func (f *FakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeClient) Close() {}

func (f *FakeClient) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "HeaderByNumber")

	n := f.tip
	if number != nil && number.Sign() >= 0 {
		n = number.Uint64()
	}

	if h, ok := f.headers[n]; ok {
		return h, nil
	}
	return &types.Header{
		Number:     new(big.Int).SetUint64(n),
		ParentHash: generateBlockHash(n - 1),
	}, nil
}

func (f *FakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "FilterLogs")

	from := uint64(0)
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	to := ^uint64(0)
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if !matchesAddress(q.Addresses, l.Address) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func matchesAddress(addrs []common.Address, a common.Address) bool {
	if len(addrs) == 0 {
		return true
	}
	for _, want := range addrs {
		if want == a {
			return true
		}
	}
	return false
}

func (f *FakeClient) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "CallContract")
	return make([]byte, 32), nil
}
