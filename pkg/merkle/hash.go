package merkle

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LeafHash hashes an ABI-encoded entry into a leaf: keccak256(keccak256(encoded)).
//
// The second round separates leaves from internal nodes. An internal node is a single
// keccak256 over 64 bytes, so a node preimage can never be presented as a leaf.
func LeafHash(encoded []byte) common.Hash {
	inner := crypto.Keccak256(encoded)
	return crypto.Keccak256Hash(inner)
}

// HashNode combines two child hashes: keccak256(min(a, b) || max(a, b)).
// Sorting the pair makes the result independent of which child is on the left.
func HashNode(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// EntryLeafHash encodes the entry under the schema and returns its leaf hash.
func EntryLeafHash(schema Schema, entry Entry) (common.Hash, error) {
	encoded, err := schema.Encode(entry)
	if err != nil {
		return common.Hash{}, err
	}
	return LeafHash(encoded), nil
}

func compareHashes(a, b common.Hash) int {
	return bytes.Compare(a[:], b[:])
}
