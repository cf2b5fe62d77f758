package merkle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot formats.
const (
	// FormatStandardV1 snapshots carry the leaf encoding and every entry.
	FormatStandardV1 = "standard-v1"
	// FormatSimpleV1 snapshots carry only leaf hashes.
	FormatSimpleV1 = "simple-v1"
)

// Snapshot is the serializable form of a Tree. It holds the whole node array, so a
// loaded tree produces the same proofs without rebuilding; hashes are still recomputed
// on load to detect corruption.
type Snapshot struct {
	Format       string          `json:"format"`
	LeafEncoding []string        `json:"leafEncoding,omitempty"`
	Tree         []common.Hash   `json:"tree"`
	Values       []SnapshotValue `json:"values"`
	Root         common.Hash     `json:"root"`
}

// SnapshotValue ties an entry (or, for simple snapshots, a leaf hash) to its position
// in the node array.
type SnapshotValue struct {
	Value     any `json:"value"`
	TreeIndex int `json:"treeIndex"`
}

// Dump returns a snapshot of the tree.
func (t *Tree) Dump() *Snapshot {
	s := &Snapshot{
		Tree:   t.Nodes(),
		Values: make([]SnapshotValue, len(t.values)),
		Root:   t.Root(),
	}

	if t.HasEntries() {
		s.Format = FormatStandardV1
		s.LeafEncoding = t.schema.Types()
		for i, v := range t.values {
			s.Values[i] = SnapshotValue{Value: []any(copyEntry(v.entry)), TreeIndex: v.treeIndex}
		}
	} else {
		s.Format = FormatSimpleV1
		for i, v := range t.values {
			s.Values[i] = SnapshotValue{Value: t.nodes[v.treeIndex].Hex(), TreeIndex: v.treeIndex}
		}
	}
	return s
}

// MarshalJSON encodes the tree as its snapshot.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Dump())
}

// Load reconstructs a tree from a snapshot and verifies its integrity.
func Load(s *Snapshot) (*Tree, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}

	var schema Schema
	switch s.Format {
	case FormatStandardV1:
		parsed, err := ParseSchema(s.LeafEncoding)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf encoding: %v", ErrCorruptSnapshot, err)
		}
		schema = parsed
	case FormatSimpleV1:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s.Format)
	}

	n := len(s.Values)
	if n == 0 {
		return nil, fmt.Errorf("%w: snapshot has no values", ErrCorruptSnapshot)
	}
	if len(s.Tree) != 2*n-1 {
		return nil, fmt.Errorf("%w: tree has %d nodes, expected %d for %d values", ErrCorruptSnapshot, len(s.Tree), 2*n-1, n)
	}

	nodes := make([]common.Hash, len(s.Tree))
	copy(nodes, s.Tree)

	values := make([]leafValue, n)
	for i, sv := range s.Values {
		values[i].treeIndex = sv.TreeIndex
		if schema.IsZero() {
			continue
		}
		var raw Entry
		switch v := sv.Value.(type) {
		case []any:
			raw = Entry(v)
		case Entry:
			raw = v
		default:
			return nil, fmt.Errorf("%w: value %d is not a tuple", ErrCorruptSnapshot, i)
		}
		canonical, err := schema.Canonical(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrCorruptSnapshot, i, err)
		}
		values[i].entry = canonical
	}

	t := &Tree{
		schema: schema,
		nodes:  nodes,
		values: values,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if schema.IsZero() {
		for i, sv := range s.Values {
			str, ok := sv.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: value %d is not a leaf hash", ErrCorruptSnapshot, i)
			}
			leaf, err := ParseHash(str)
			if err != nil {
				return nil, fmt.Errorf("%w: value %d: %v", ErrCorruptSnapshot, i, err)
			}
			if leaf != nodes[values[i].treeIndex] {
				return nil, fmt.Errorf("%w: value %d does not match tree leaf %d", ErrCorruptSnapshot, i, values[i].treeIndex)
			}
		}
	}

	if s.Root == (common.Hash{}) {
		return nil, fmt.Errorf("%w: snapshot has no root", ErrCorruptSnapshot)
	}
	if s.Root != nodes[0] {
		return nil, fmt.Errorf("%w: root %s does not match tree root %s", ErrCorruptSnapshot, s.Root.Hex(), nodes[0].Hex())
	}

	t.lookup = make(map[common.Hash]int, n)
	for i, v := range values {
		t.lookup[nodes[v.treeIndex]] = i
	}
	return t, nil
}

// Validate checks the structural integrity of the tree: the layout of the node array,
// the ordering of leaves, every internal hash and, when entries are present, every
// leaf hash.
func (t *Tree) Validate() error {
	n := len(t.values)
	if n == 0 || len(t.nodes) != 2*n-1 {
		return fmt.Errorf("%w: %d nodes for %d leaves", ErrCorruptSnapshot, len(t.nodes), n)
	}

	seen := make(map[int]bool, n)
	for i, v := range t.values {
		if !isLeafIndex(len(t.nodes), v.treeIndex) {
			return fmt.Errorf("%w: value %d has tree index %d outside the leaf range", ErrCorruptSnapshot, i, v.treeIndex)
		}
		if seen[v.treeIndex] {
			return fmt.Errorf("%w: tree index %d used more than once", ErrCorruptSnapshot, v.treeIndex)
		}
		seen[v.treeIndex] = true

		if t.HasEntries() {
			leaf, err := EntryLeafHash(t.schema, v.entry)
			if err != nil {
				return fmt.Errorf("%w: value %d: %v", ErrCorruptSnapshot, i, err)
			}
			if leaf != t.nodes[v.treeIndex] {
				return fmt.Errorf("%w: value %d hashes to %s, tree holds %s", ErrCorruptSnapshot, i, leaf.Hex(), t.nodes[v.treeIndex].Hex())
			}
		}
	}

	last := len(t.nodes) - 1
	for pos := 1; pos < n; pos++ {
		if compareHashes(t.nodes[last-pos+1], t.nodes[last-pos]) >= 0 {
			return fmt.Errorf("%w: leaves are not in canonical order at tree index %d", ErrCorruptSnapshot, last-pos)
		}
	}

	for i := n - 2; i >= 0; i-- {
		if t.nodes[i] != HashNode(t.nodes[leftChild(i)], t.nodes[rightChild(i)]) {
			return fmt.Errorf("%w: internal node %d does not match its children", ErrCorruptSnapshot, i)
		}
	}
	return nil
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot marshal nil snapshot")
	}
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a JSON snapshot. The format is checked before the rest of
// the document, so an unknown format is reported as ErrUnsupportedVersion.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrCorruptSnapshot)
	}

	var header struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if header.Format != FormatStandardV1 && header.Format != FormatSimpleV1 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, header.Format)
	}

	// Numbers are kept as json.Number so large integers survive decoding.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &s, nil
}

// LoadJSON decodes and loads a JSON snapshot.
func LoadJSON(data []byte) (*Tree, error) {
	s, err := UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}
	return Load(s)
}
