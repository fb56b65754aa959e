// Package merkle implements the Merkle Forest storage engine: three tree
// shapes (per-chain LocalExit, the single RollupExit, and the single
// L1Info) sharing one badger keyspace, with incremental hashing, proof
// retrieval, and persistent leaf-count/cursor metadata.
package merkle

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// Forest is the shared, long-lived handle every ingestion stream and the
// read API hold a reference to. All mutation is funneled through atomic
// badger transactions; the database's own internal synchronization makes
// concurrent reads and single-writer-per-tree mutation safe without an
// additional in-memory lock.
type Forest struct {
	db     *badgerdb.DB
	zero   [Depth + 1]Hash
	logger *zap.Logger

	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the badger database at path, precomputing the zero
// ladder and starting a background value-log GC goroutine. Trees are
// created implicitly on first write; Open never touches tree state itself.
func Open(path string, logger *zap.Logger) (*Forest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, newStorageError("resolve path", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = false // durability is "on next flush", not a per-write fsync.

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, newStorageError("open", err)
	}

	f := &Forest{
		db:     db,
		zero:   zeroLadder(),
		logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.gcCancel = cancel
	f.gcWg.Add(1)
	go f.runGC(ctx)

	logger.Sugar().Infow("merkle forest opened", "path", absPath)
	return f, nil
}

func (f *Forest) runGC(ctx context.Context) {
	defer f.gcWg.Done()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := f.db.RunValueLogGC(0.5); err != nil && err != badgerdb.ErrNoRewrite {
				f.logger.Sugar().Warnw("forest value log GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the GC goroutine and closes the database. Idempotent.
func (f *Forest) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.gcCancel()
	f.gcWg.Wait()

	if err := f.db.Close(); err != nil {
		return newStorageError("close", err)
	}
	return nil
}

// GetLeafCount returns the number of live leaf slots for kind, 0 if the
// tree has never been written to.
func (f *Forest) GetLeafCount(kind Kind) (uint32, error) {
	var count uint32
	err := f.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(metaKey(kind, metaTagLeafCount))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			count = binary.BigEndian.Uint32(val)
			return nil
		})
	})
	if err != nil {
		return 0, newStorageError("get leaf count", err)
	}
	return count, nil
}

// GetLatestBlock returns the ingestion cursor for kind, or nil if the tree
// has never been written to.
func (f *Forest) GetLatestBlock(kind Kind) (*uint64, error) {
	var block *uint64
	err := f.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(metaKey(kind, metaTagLatestBlock))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v := binary.BigEndian.Uint64(val)
			block = &v
			return nil
		})
	})
	if err != nil {
		return nil, newStorageError("get latest block", err)
	}
	return block, nil
}

// GetRoot returns the current root of kind, or nil when the tree is empty
// (Property 7). A tree with a non-zero leaf count always has a stored
// (Depth, 0) node or falls back to the top of the zero ladder.
func (f *Forest) GetRoot(kind Kind) (*Hash, error) {
	leafCount, err := f.GetLeafCount(kind)
	if err != nil {
		return nil, err
	}
	if leafCount == 0 {
		return nil, nil
	}

	var root Hash
	found := false
	err = f.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(nodeKey(kind, Depth, 0))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			copy(root[:], val)
			return nil
		})
	})
	if err != nil {
		return nil, newStorageError("get root", err)
	}
	if !found {
		root = f.zero[Depth]
	}
	return &root, nil
}

func (f *Forest) getHash(txn *badgerdb.Txn, kind Kind, level uint8, index uint32) (Hash, error) {
	item, err := txn.Get(nodeKey(kind, level, index))
	if err == badgerdb.ErrKeyNotFound {
		return f.zero[level], nil
	}
	if err != nil {
		return Hash{}, err
	}
	var h Hash
	err = item.Value(func(val []byte) error {
		copy(h[:], val)
		return nil
	})
	return h, err
}

func putHash(txn *badgerdb.Txn, kind Kind, level uint8, index uint32, h Hash) error {
	return txn.Set(nodeKey(kind, level, index), h[:])
}

func putLeafCount(txn *badgerdb.Txn, kind Kind, count uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], count)
	return txn.Set(metaKey(kind, metaTagLeafCount), buf[:])
}

func putLatestBlock(txn *badgerdb.Txn, kind Kind, block uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], block)
	return txn.Set(metaKey(kind, metaTagLatestBlock), buf[:])
}

// insertOne runs the incremental update algorithm for a single leaf: write
// the leaf, hash all the way to the root, writing every intermediate node
// along the way. It is always the entire body of one atomic transaction —
// the backend does not support a batch reading its own prior writes, so
// multi-leaf inserts are emulated as a sequence of these single-leaf
// transactions (see AppendBridgeLeaves).
func (f *Forest) insertOne(txn *badgerdb.Txn, kind Kind, index uint32, leaf Hash) error {
	node := leaf
	if err := putHash(txn, kind, 0, index, node); err != nil {
		return err
	}

	idx := index
	for level := uint8(0); level < Depth; level++ {
		var left, right Hash
		if idx%2 == 0 {
			left = node
			sibling, err := f.getHash(txn, kind, level, idx+1)
			if err != nil {
				return err
			}
			right = sibling
		} else {
			sibling, err := f.getHash(txn, kind, level, idx-1)
			if err != nil {
				return err
			}
			left = sibling
			right = node
		}
		node = hashPair(left, right)
		idx /= 2
		if err := putHash(txn, kind, level+1, idx, node); err != nil {
			return err
		}
	}
	return nil
}

// AppendBridgeLeaves appends leaves into LocalExit(chainID), one atomic
// transaction per leaf. Preconditions: deposit counts strictly consecutive
// starting at the tree's current leaf count.
func (f *Forest) AppendBridgeLeaves(chainID uint32, leaves []BridgeLeaf, block uint64) error {
	if len(leaves) == 0 {
		return nil
	}
	kind := LocalExit(chainID)

	for i := 1; i < len(leaves); i++ {
		if leaves[i].DepositCount != leaves[i-1].DepositCount+1 {
			return newConsistencyError(kind, ErrDepositCountNotMonotonic)
		}
	}

	currentCount, err := f.GetLeafCount(kind)
	if err != nil {
		return err
	}
	if leaves[0].DepositCount != currentCount {
		if leaves[0].DepositCount < currentCount {
			return newConsistencyError(kind, ErrDuplicateDepositCount)
		}
		return newConsistencyError(kind, ErrDepositCountGap)
	}
	if currentCount >= MaxLeaves {
		return newConsistencyError(kind, ErrTreeFull)
	}

	index := currentCount
	for _, leaf := range leaves {
		err := f.db.Update(func(txn *badgerdb.Txn) error {
			if err := f.insertOne(txn, kind, index, leaf.HashedLeaf()); err != nil {
				return err
			}
			if err := putLeafCount(txn, kind, index+1); err != nil {
				return err
			}
			return putLatestBlock(txn, kind, block)
		})
		if err != nil {
			return newStorageError("append bridge leaf", err)
		}
		index++
	}
	return nil
}

// SetRollupLeaf writes leaf at index chainID-1 in the RollupExit tree.
// chainID must be non-zero. leaf_count becomes max(leaf_count, chainID);
// writing the same (chainID, leaf) pair twice is idempotent.
func (f *Forest) SetRollupLeaf(chainID uint32, leaf Hash, block uint64) error {
	kind := RollupExit()
	if chainID == 0 {
		return newConsistencyError(kind, ErrInvalidChainID)
	}
	index := chainID - 1
	if index >= MaxLeaves {
		return newConsistencyError(kind, ErrTreeFull)
	}

	currentCount, err := f.GetLeafCount(kind)
	if err != nil {
		return err
	}
	newCount := currentCount
	if index+1 > newCount {
		newCount = index + 1
	}

	err = f.db.Update(func(txn *badgerdb.Txn) error {
		if err := f.insertOne(txn, kind, index, leaf); err != nil {
			return err
		}
		if err := putLeafCount(txn, kind, newCount); err != nil {
			return err
		}
		return putLatestBlock(txn, kind, block)
	})
	if err != nil {
		return newStorageError("set rollup leaf", err)
	}
	return nil
}

// AppendL1InfoLeaf appends leaf into the L1Info tree. Same append-only
// invariants as AppendBridgeLeaves, but L1Info has no externally supplied
// deposit count to check against: the leaf always lands at the current
// leaf count.
func (f *Forest) AppendL1InfoLeaf(leaf Hash, block uint64) error {
	kind := L1Info()
	currentCount, err := f.GetLeafCount(kind)
	if err != nil {
		return err
	}
	if currentCount >= MaxLeaves {
		return newConsistencyError(kind, ErrTreeFull)
	}

	err = f.db.Update(func(txn *badgerdb.Txn) error {
		if err := f.insertOne(txn, kind, currentCount, leaf); err != nil {
			return err
		}
		if err := putLeafCount(txn, kind, currentCount+1); err != nil {
			return err
		}
		return putLatestBlock(txn, kind, block)
	})
	if err != nil {
		return newStorageError("append l1info leaf", err)
	}
	return nil
}

// TouchLatestBlock advances the latest_block cursor for kind to
// max(current, block) without touching leaf state. Used by processors to
// record that a fetched window was fully applied even when it contained no
// leaf-producing events for this tree.
func (f *Forest) TouchLatestBlock(kind Kind, block uint64) error {
	current, err := f.GetLatestBlock(kind)
	if err != nil {
		return err
	}
	if current != nil && *current >= block {
		return nil
	}
	err = f.db.Update(func(txn *badgerdb.Txn) error {
		return putLatestBlock(txn, kind, block)
	})
	if err != nil {
		return newStorageError("touch latest block", err)
	}
	return nil
}

// MerkleProof returns the ordered sibling path from level 0 up to Depth-1
// for leafIndex in kind. For RollupExit, leafIndex is interpreted as a
// chain id and shifted by -1 internally.
func (f *Forest) MerkleProof(kind Kind, leafIndex uint32) ([Depth]Hash, error) {
	var proof [Depth]Hash

	index := leafIndex
	if kind.IsRollupExit() {
		if leafIndex == 0 {
			return proof, newConsistencyError(kind, ErrInvalidChainID)
		}
		index = leafIndex - 1
	}

	err := f.db.View(func(txn *badgerdb.Txn) error {
		idx := index
		for level := uint8(0); level < Depth; level++ {
			sibling, err := f.getHash(txn, kind, level, idx^1)
			if err != nil {
				return err
			}
			proof[level] = sibling
			idx >>= 1
		}
		return nil
	})
	if err != nil {
		return proof, newStorageError("merkle proof", err)
	}
	return proof, nil
}
