package merkle

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// l1InfoSource is the tagged union of the two ways a LeafL1Info can obtain
// its timestamp and previous L1 block hash: either the paired V2 event (the
// fast path, same transaction as the V1 event) or the containing block's
// header (the fallback for pre-V2 history). Modeling this as a closed
// interface rather than optional fields guarantees both values are always
// available once a LeafL1Info is constructed.
type l1InfoSource interface {
	timestamp() uint64
	prevL1BlockHash() Hash
	isV2() bool
}

// L1InfoV2Source is the fast path: the UpdateL1InfoTreeV2 event emitted in
// the same transaction as its V1 counterpart.
type L1InfoV2Source struct {
	MinTimestamp       uint64
	BlockHash          Hash
	LeafCount          uint32
	CurrentL1InfoRoot  Hash
}

func (s L1InfoV2Source) timestamp() uint64        { return s.MinTimestamp }
func (s L1InfoV2Source) prevL1BlockHash() Hash     { return s.BlockHash }
func (s L1InfoV2Source) isV2() bool                { return true }

// L1InfoBlockSource is the slow path: the containing block's header,
// used when no V2 event exists for the transaction (pre-V2 history).
type L1InfoBlockSource struct {
	Timestamp  uint64
	ParentHash Hash
}

func (s L1InfoBlockSource) timestamp() uint64    { return s.Timestamp }
func (s L1InfoBlockSource) prevL1BlockHash() Hash { return s.ParentHash }
func (s L1InfoBlockSource) isV2() bool            { return false }

// L1InfoLeaf is the decoded form of one L1Info tree entry: a
// (GER, prev_l1_block_hash, timestamp) snapshot.
type L1InfoLeaf struct {
	MainnetExitRoot Hash
	RollupExitRoot  Hash
	Source          l1InfoSource
}

// GER computes the Global Exit Root: Keccak256(mer || rer).
func GER(mer, rer Hash) Hash {
	var buf [64]byte
	copy(buf[:32], mer[:])
	copy(buf[32:], rer[:])
	return Hash(crypto.Keccak256Hash(buf[:]))
}

// Ger returns the leaf's Global Exit Root.
func (l L1InfoLeaf) Ger() Hash {
	return GER(l.MainnetExitRoot, l.RollupExitRoot)
}

// HasV2 reports whether the leaf was built from the fast V2 path rather
// than a fetched block header.
func (l L1InfoLeaf) HasV2() bool {
	return l.Source.isV2()
}

// HashedLeaf computes the 72-byte preimage and returns its Keccak256 hash:
//
//	GER(32) || prev_l1_block_hash(32) || timestamp_be_u64(8)
func (l L1InfoLeaf) HashedLeaf() Hash {
	var buf [72]byte
	ger := l.Ger()
	copy(buf[0:32], ger[:])
	prev := l.Source.prevL1BlockHash()
	copy(buf[32:64], prev[:])
	binary.BigEndian.PutUint64(buf[64:72], l.Source.timestamp())
	return Hash(crypto.Keccak256Hash(buf[:]))
}
