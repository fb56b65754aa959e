package merkle

import "github.com/pkg/errors"

// Sentinel errors the forest distinguishes, per the core's error taxonomy.
// A ConsistencyError wraps one of these with the context an operator needs
// to diagnose a stalled ingestion stream; callers should compare with
// errors.Is against the sentinels below, not against ConsistencyError
// itself.
var (
	ErrDepositCountGap           = errors.New("deposit count is not contiguous with the current leaf count")
	ErrDepositCountNotMonotonic  = errors.New("deposit counts within a batch are not strictly increasing")
	ErrDuplicateDepositCount     = errors.New("deposit count has already been inserted")
	ErrTreeFull                  = errors.New("tree has reached its maximum leaf count")
	ErrInvalidChainID            = errors.New("chain id must be non-zero for a rollup exit leaf")
	ErrLeafIndexOutOfRange       = errors.New("leaf index out of range for this tree's depth")
)

// ConsistencyError reports a violation of a forest invariant: a gap or
// regression in deposit counts, an overflowing tree, or an invalid index.
// These indicate RPC corruption or an implementation bug upstream and are
// fatal to the ingestion stream that raised them.
type ConsistencyError struct {
	Kind Kind
	Err  error
}

func (e *ConsistencyError) Error() string {
	return errors.Wrapf(e.Err, "tree %s", e.Kind).Error()
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

func newConsistencyError(kind Kind, err error) *ConsistencyError {
	return &ConsistencyError{Kind: kind, Err: err}
}

// StorageError wraps a failure of the underlying KV backend. Fatal to the
// writing stream; unrelated streams are unaffected.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return errors.Wrapf(e.Err, "storage: %s", e.Op).Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
