package merkle

import "encoding/binary"

// Key schema. Node keys and metadata keys are namespaced by a leading
// big-endian chain id, a column-type byte, and the tree kind, so the three
// tree shapes can share a single badger keyspace without collision.
const (
	colTypeNode uint8 = 0
	colTypeMeta uint8 = 1

	metaTagLeafCount   uint8 = 0
	metaTagLatestBlock uint8 = 1
)

// nodeKey builds the 11-byte key for the node (level, index) of tree.
func nodeKey(kind Kind, level uint8, index uint32) []byte {
	key := make([]byte, 11)
	binary.BigEndian.PutUint32(key[0:4], kind.chainIDField())
	key[4] = colTypeNode
	key[5] = kind.typeByte()
	key[6] = level
	binary.BigEndian.PutUint32(key[7:11], index)
	return key
}

// metaKey builds the 7-byte key for a metadata tag of tree.
func metaKey(kind Kind, tag uint8) []byte {
	key := make([]byte, 7)
	binary.BigEndian.PutUint32(key[0:4], kind.chainIDField())
	key[4] = colTypeMeta
	key[5] = kind.typeByte()
	key[6] = tag
	return key
}
