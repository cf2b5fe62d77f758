package merkle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Verify recomputes the root from the leaf and the proof and compares it to root.
//
// A proof that does not lead to root is reported as false with a nil error. An empty
// proof is the proof of a single-leaf tree and only verifies when leaf equals root.
// Errors are returned only for structurally invalid proofs such as an unknown position.
func Verify(leaf common.Hash, proof Proof, root common.Hash) (bool, error) {
	computed, err := ProcessProof(leaf, proof)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}

// ProcessProof folds HashNode over the proof starting from leaf and returns the
// resulting root.
func ProcessProof(leaf common.Hash, proof Proof) (common.Hash, error) {
	current := leaf
	for i, step := range proof {
		if !step.Position.valid() {
			return common.Hash{}, fmt.Errorf("%w: step %d has invalid position %q", ErrMalformedProof, i, step.Position)
		}
		current = HashNode(current, step.Sibling)
	}
	return current, nil
}

// VerifyEntry encodes and hashes the entry under the schema before verifying the proof.
func VerifyEntry(schema Schema, entry Entry, proof Proof, root common.Hash) (bool, error) {
	leaf, err := EntryLeafHash(schema, entry)
	if err != nil {
		return false, err
	}
	return Verify(leaf, proof, root)
}

// ProcessMultiProof recomputes the root implied by a multiproof.
func ProcessMultiProof(mp *MultiProof) (common.Hash, error) {
	if mp == nil {
		return common.Hash{}, fmt.Errorf("%w: nil multiproof", ErrMalformedProof)
	}

	needed := 0
	for _, flag := range mp.ProofFlags {
		if !flag {
			needed++
		}
	}
	if len(mp.Proof) < needed {
		return common.Hash{}, fmt.Errorf("%w: multiproof has %d proof hashes, flags require %d", ErrMalformedProof, len(mp.Proof), needed)
	}
	if len(mp.Leaves)+len(mp.Proof) != len(mp.ProofFlags)+1 {
		return common.Hash{}, fmt.Errorf("%w: %d leaves and %d proof hashes do not match %d flags",
			ErrMalformedProof, len(mp.Leaves), len(mp.Proof), len(mp.ProofFlags))
	}

	queue := make([]common.Hash, len(mp.Leaves), len(mp.Leaves)+len(mp.ProofFlags))
	copy(queue, mp.Leaves)
	proof := mp.Proof

	pop := func() (common.Hash, bool) {
		if len(queue) == 0 {
			return common.Hash{}, false
		}
		h := queue[0]
		queue = queue[1:]
		return h, true
	}

	for i, flag := range mp.ProofFlags {
		a, ok := pop()
		if !ok {
			return common.Hash{}, fmt.Errorf("%w: flag %d has no hash to consume", ErrMalformedProof, i)
		}
		var b common.Hash
		if flag {
			if b, ok = pop(); !ok {
				return common.Hash{}, fmt.Errorf("%w: flag %d has no hash to consume", ErrMalformedProof, i)
			}
		} else {
			b = proof[0]
			proof = proof[1:]
		}
		queue = append(queue, HashNode(a, b))
	}

	if len(queue)+len(proof) != 1 {
		return common.Hash{}, fmt.Errorf("%w: multiproof does not reduce to a single root", ErrMalformedProof)
	}
	if len(queue) == 1 {
		return queue[0], nil
	}
	return proof[0], nil
}

// VerifyMultiProof reports whether the multiproof leads to root.
func VerifyMultiProof(mp *MultiProof, root common.Hash) (bool, error) {
	computed, err := ProcessMultiProof(mp)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}

// ParseHash decodes a 0x-prefixed 32-byte hex digest.
func ParseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: invalid digest %q: %v", ErrMalformedProof, s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: digest must be %d bytes, got %d", ErrMalformedProof, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// ParseProof decodes a JSON proof. Both the structured form
// ([{"digest": "0x..", "position": "left"}, ...]) and a bare list of sibling
// digests (["0x..", ...]) are accepted.
func ParseProof(data []byte) (Proof, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}

	proof := make(Proof, len(raw))
	for i, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			h, err := ParseHash(s)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			proof[i] = ProofStep{Sibling: h, Position: PositionUnknown}
			continue
		}

		var step struct {
			Digest   string   `json:"digest"`
			Position Position `json:"position"`
		}
		if err := json.Unmarshal(item, &step); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrMalformedProof, i, err)
		}
		h, err := ParseHash(step.Digest)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if !step.Position.valid() {
			return nil, fmt.Errorf("%w: step %d has invalid position %q", ErrMalformedProof, i, step.Position)
		}
		proof[i] = ProofStep{Sibling: h, Position: step.Position}
	}
	return proof, nil
}
