package merkle

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Tree is an immutable binary merkle tree stored as a complete binary tree in an array.
//
// For n leaves the array holds 2n-1 hashes. Node i has children 2i+1 and 2i+2, the root
// is at index 0 and the leaves occupy the last n slots in ascending hash order, with the
// smallest leaf in the last slot. When n is not a power of two some leaves sit one level
// above the others; no node is ever duplicated or promoted.
//
// A Tree is safe for concurrent use by multiple readers.
type Tree struct {
	schema Schema
	nodes  []common.Hash
	values []leafValue

	// leaf hash -> index in values
	lookup map[common.Hash]int
}

type leafValue struct {
	// canonical form of the entry; nil when the tree was built from bare leaf hashes
	entry     Entry
	treeIndex int
}

// Build encodes and hashes every entry, sorts the leaves and assembles the tree.
//
// Entry indices used by Proof, Entry and LeafHash refer to the order of the input slice.
// The root only depends on the set of entries, not on their order.
func Build(entries []Entry, schema Schema, opts ...BuildOption) (*Tree, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyInput
	}
	if schema.IsZero() {
		return nil, fmt.Errorf("%w: schema is empty", ErrSchemaMismatch)
	}
	cfg := newBuildConfig(opts)

	leaves := make([]common.Hash, len(entries))
	canonical := make([]Entry, len(entries))
	err := cfg.parallelFor(0, len(entries), func(i int) error {
		c, err := schema.Canonical(entries[i])
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		encoded, err := schema.Encode(c)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		canonical[i] = c
		leaves[i] = LeafHash(encoded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assemble(schema, leaves, canonical, cfg)
}

// FromLeaves builds a tree directly over pre-computed leaf hashes. The entries behind
// the leaves stay private to the caller; the resulting tree has no schema.
func FromLeaves(leaves []common.Hash, opts ...BuildOption) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyInput
	}
	cfg := newBuildConfig(opts)

	hashes := make([]common.Hash, len(leaves))
	copy(hashes, leaves)
	return assemble(Schema{}, hashes, nil, cfg)
}

func assemble(schema Schema, leaves []common.Hash, entries []Entry, cfg *buildConfig) (*Tree, error) {
	n := len(leaves)

	lookup := make(map[common.Hash]int, n)
	for i, leaf := range leaves {
		if prev, ok := lookup[leaf]; ok {
			return nil, fmt.Errorf("%w: entries %d and %d both hash to %s", ErrDuplicateLeaf, prev, i, leaf.Hex())
		}
		lookup[leaf] = i
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return compareHashes(leaves[order[a]], leaves[order[b]]) < 0
	})

	nodes := make([]common.Hash, 2*n-1)
	values := make([]leafValue, n)
	for pos, idx := range order {
		treeIndex := len(nodes) - 1 - pos
		nodes[treeIndex] = leaves[idx]
		values[idx].treeIndex = treeIndex
		if entries != nil {
			values[idx].entry = entries[idx]
		}
	}

	if err := cfg.hashInternal(nodes, n); err != nil {
		return nil, err
	}

	return &Tree{
		schema: schema,
		nodes:  nodes,
		values: values,
		lookup: lookup,
	}, nil
}

// Root returns the root hash of the tree.
func (t *Tree) Root() common.Hash {
	return t.nodes[0]
}

// Len returns the number of leaves (entries) in the tree.
func (t *Tree) Len() int {
	return len(t.values)
}

// Schema returns the leaf encoding of the tree. It is the zero Schema for trees
// built with FromLeaves.
func (t *Tree) Schema() Schema {
	return t.schema
}

// HasEntries reports whether the tree carries the entries behind its leaves.
func (t *Tree) HasEntries() bool {
	return !t.schema.IsZero()
}

// Entry returns the canonical form of the entry at the given index.
func (t *Tree) Entry(index int) (Entry, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}
	if !t.HasEntries() {
		return nil, fmt.Errorf("tree was built from leaf hashes and holds no entries")
	}
	return copyEntry(t.values[index].entry), nil
}

// Entries returns the canonical entries in insertion order.
func (t *Tree) Entries() []Entry {
	if !t.HasEntries() {
		return nil
	}
	out := make([]Entry, len(t.values))
	for i, v := range t.values {
		out[i] = copyEntry(v.entry)
	}
	return out
}

// LeafHash returns the leaf hash of the entry at the given index.
func (t *Tree) LeafHash(index int) (common.Hash, error) {
	if err := t.checkIndex(index); err != nil {
		return common.Hash{}, err
	}
	return t.nodes[t.values[index].treeIndex], nil
}

// TreeIndex returns the position in the node array of the leaf for the given entry index.
func (t *Tree) TreeIndex(index int) (int, error) {
	if err := t.checkIndex(index); err != nil {
		return 0, err
	}
	return t.values[index].treeIndex, nil
}

// IndexOf returns the index of the entry in the tree.
func (t *Tree) IndexOf(entry Entry) (int, error) {
	if !t.HasEntries() {
		return 0, fmt.Errorf("tree was built from leaf hashes and holds no entries")
	}
	leaf, err := EntryLeafHash(t.schema, entry)
	if err != nil {
		return 0, err
	}
	return t.IndexOfLeaf(leaf)
}

// IndexOfLeaf returns the index of the entry with the given leaf hash.
func (t *Tree) IndexOfLeaf(leaf common.Hash) (int, error) {
	idx, ok := t.lookup[leaf]
	if !ok {
		return 0, fmt.Errorf("%w: leaf %s", ErrEntryNotFound, leaf.Hex())
	}
	return idx, nil
}

// Nodes returns a copy of the node array.
func (t *Tree) Nodes() []common.Hash {
	out := make([]common.Hash, len(t.nodes))
	copy(out, t.nodes)
	return out
}

func (t *Tree) checkIndex(index int) error {
	if index < 0 || index >= len(t.values) {
		return fmt.Errorf("%w: index %d (tree has %d leaves)", ErrIndexOutOfRange, index, len(t.values))
	}
	return nil
}

func copyEntry(e Entry) Entry {
	if e == nil {
		return nil
	}
	out := make(Entry, len(e))
	copy(out, e)
	return out
}

func leftChild(i int) int  { return 2*i + 1 }
func rightChild(i int) int { return 2*i + 2 }
func parent(i int) int     { return (i - 1) / 2 }

// sibling of a non-root node: left children have odd indices.
func sibling(i int) int {
	if i%2 == 1 {
		return i + 1
	}
	return i - 1
}

func isLeafIndex(nodes, i int) bool {
	return i >= 0 && leftChild(i) >= nodes && i < nodes
}
