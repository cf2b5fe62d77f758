package merkle

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Position records on which side of the path node a sibling sits.
type Position string

const (
	// PositionLeft means the sibling is the left child of the shared parent.
	PositionLeft Position = "left"
	// PositionRight means the sibling is the right child of the shared parent.
	PositionRight Position = "right"
	// PositionUnknown is used for proofs decoded from a bare list of sibling hashes.
	// HashNode is commutative, so verification does not depend on it.
	PositionUnknown Position = ""
)

func (p Position) valid() bool {
	return p == PositionLeft || p == PositionRight || p == PositionUnknown
}

// ProofStep is one level of a merkle proof.
type ProofStep struct {
	Sibling  common.Hash `json:"digest"`
	Position Position    `json:"position"`
}

// Proof is the ordered list of sibling hashes from a leaf up to, but excluding, the root.
// It carries neither the leaf nor the root: the root must be known out of band.
type Proof []ProofStep

// Hashes returns the sibling hashes of the proof in order.
func (p Proof) Hashes() []common.Hash {
	out := make([]common.Hash, len(p))
	for i, step := range p {
		out[i] = step.Sibling
	}
	return out
}

// ProofFromHashes builds a proof from a bare list of sibling hashes, leaving
// positions unknown.
func ProofFromHashes(hashes []common.Hash) Proof {
	p := make(Proof, len(hashes))
	for i, h := range hashes {
		p[i] = ProofStep{Sibling: h, Position: PositionUnknown}
	}
	return p
}

// Proof returns the membership proof of the entry at the given index.
func (t *Tree) Proof(index int) (Proof, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}
	return t.proofForTreeIndex(t.values[index].treeIndex), nil
}

// ProofForEntry looks the entry up and returns its proof.
func (t *Tree) ProofForEntry(entry Entry) (Proof, error) {
	index, err := t.IndexOf(entry)
	if err != nil {
		return nil, err
	}
	return t.Proof(index)
}

func (t *Tree) proofForTreeIndex(i int) Proof {
	proof := make(Proof, 0)
	for i > 0 {
		s := sibling(i)
		position := PositionLeft
		if i%2 == 1 {
			position = PositionRight
		}
		proof = append(proof, ProofStep{Sibling: t.nodes[s], Position: position})
		i = parent(i)
	}
	return proof
}

// MultiProof proves membership of several leaves at once.
//
// Leaves are consumed in order together with the Proof hashes as driven by ProofFlags:
// a true flag combines two already computed hashes, a false flag combines a computed
// hash with the next Proof hash.
type MultiProof struct {
	// Indices are the entry indices of Leaves, in the same order.
	Indices    []int         `json:"indices"`
	Leaves     []common.Hash `json:"leaves"`
	Proof      []common.Hash `json:"proof"`
	ProofFlags []bool        `json:"proofFlags"`
}

// MultiProof returns a single proof covering all the given entry indices.
func (t *Tree) MultiProof(indices []int) (*MultiProof, error) {
	treeIndices := make([]int, len(indices))
	byTreeIndex := make(map[int]int, len(indices))
	for i, index := range indices {
		if err := t.checkIndex(index); err != nil {
			return nil, err
		}
		ti := t.values[index].treeIndex
		if _, dup := byTreeIndex[ti]; dup {
			return nil, fmt.Errorf("%w: index %d requested more than once", ErrInvalidMultiProof, index)
		}
		byTreeIndex[ti] = index
		treeIndices[i] = ti
	}

	sort.Sort(sort.Reverse(sort.IntSlice(treeIndices)))

	queue := make([]int, len(treeIndices))
	copy(queue, treeIndices)
	proof := make([]common.Hash, 0)
	flags := make([]bool, 0)

	for len(queue) > 0 && queue[0] > 0 {
		j := queue[0]
		queue = queue[1:]
		s := sibling(j)
		p := parent(j)

		if len(queue) > 0 && s == queue[0] {
			flags = append(flags, true)
			queue = queue[1:]
		} else {
			flags = append(flags, false)
			proof = append(proof, t.nodes[s])
		}
		queue = append(queue, p)
	}

	if len(treeIndices) == 0 {
		proof = append(proof, t.nodes[0])
	}

	mp := &MultiProof{
		Indices:    make([]int, len(treeIndices)),
		Leaves:     make([]common.Hash, len(treeIndices)),
		Proof:      proof,
		ProofFlags: flags,
	}
	for i, ti := range treeIndices {
		mp.Indices[i] = byTreeIndex[ti]
		mp.Leaves[i] = t.nodes[ti]
	}
	return mp, nil
}
