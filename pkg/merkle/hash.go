package merkle

import "github.com/ethereum/go-ethereum/crypto"

// Depth is the fixed height of every tree in the forest. A tree of this
// depth holds at most 2^Depth - 1 leaves.
const Depth = 32

// MaxLeaves is the largest leaf count a tree of Depth can hold.
const MaxLeaves uint32 = (1 << Depth) - 1

// Hash is a 32-byte node or leaf hash.
type Hash [32]byte

func hashPair(left, right Hash) Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return Hash(crypto.Keccak256Hash(buf[:]))
}

// zeroLadder precomputes Z[0..=Depth] where Z[0] is 32 zero bytes and
// Z[i] = H(Z[i-1] || Z[i-1]). It fills every level of a tree that has never
// received a write at that subtree.
func zeroLadder() [Depth + 1]Hash {
	var z [Depth + 1]Hash
	for i := 1; i <= Depth; i++ {
		z[i] = hashPair(z[i-1], z[i-1])
	}
	return z
}

// CalcRoot folds a leaf hash back up to a root given its sibling path and
// leaf index, choosing left/right at level k by bit k of index. For every
// leaf appended through the forest, CalcRoot(leaf, MerkleProof(index), index)
// equals the tree's current root (the round-trip law, Property 2).
func CalcRoot(leaf Hash, proof [Depth]Hash, index uint32) Hash {
	current := leaf
	for level := 0; level < Depth; level++ {
		sibling := proof[level]
		if index&1 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		index >>= 1
	}
	return current
}
