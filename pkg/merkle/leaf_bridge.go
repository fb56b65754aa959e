package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// BridgeLeaf is the decoded form of a bridge-out event, ready to be hashed
// into a LocalExit tree leaf. Field layout matches the BridgeEvent emitted
// by the bridge contract.
type BridgeLeaf struct {
	LeafType            uint8
	OriginNetwork       uint32
	OriginAddress       common.Address
	DestinationNetwork  uint32
	DestinationAddress  common.Address
	Amount              *uint256.Int
	Metadata            []byte
	DepositCount        uint32
}

// HashedLeaf computes the 113-byte preimage and returns its Keccak256 hash:
//
//	leaf_type(1) || origin_network_be(4) || origin_address(20) ||
//	destination_network_be(4) || destination_address(20) ||
//	amount_be(32) || keccak256(metadata)(32)
func (l BridgeLeaf) HashedLeaf() Hash {
	var buf [113]byte

	buf[0] = l.LeafType
	putUint32BE(buf[1:5], l.OriginNetwork)
	copy(buf[5:25], l.OriginAddress.Bytes())
	putUint32BE(buf[25:29], l.DestinationNetwork)
	copy(buf[29:49], l.DestinationAddress.Bytes())

	amount := l.Amount
	if amount == nil {
		amount = uint256.NewInt(0)
	}
	amountBE := amount.Bytes32()
	copy(buf[49:81], amountBE[:])

	metadataHash := crypto.Keccak256Hash(l.Metadata)
	copy(buf[81:113], metadataHash[:])

	return Hash(crypto.Keccak256Hash(buf[:]))
}

func putUint32BE(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
