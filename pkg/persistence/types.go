package persistence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("persistence layer is closed")

// SnapshotRecord is a named tree snapshot.
type SnapshotRecord struct {
	// Name is the primary key of the record.
	Name string `json:"name"`

	// Root duplicates Snapshot.Root so listings don't need to load the tree.
	Root common.Hash `json:"root"`

	// CreatedAt is the Unix timestamp at which the record was created.
	CreatedAt int64 `json:"createdAt"`

	Snapshot *merkle.Snapshot `json:"snapshot"`
}

// NewSnapshotRecord dumps the tree into a record named name.
func NewSnapshotRecord(name string, tree *merkle.Tree) (*SnapshotRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot name cannot be empty")
	}
	if tree == nil {
		return nil, fmt.Errorf("cannot create snapshot record for nil tree")
	}
	return &SnapshotRecord{
		Name:      name,
		Root:      tree.Root(),
		CreatedAt: time.Now().Unix(),
		Snapshot:  tree.Dump(),
	}, nil
}

// Tree loads the snapshot, checking its integrity.
func (r *SnapshotRecord) Tree() (*merkle.Tree, error) {
	if r == nil {
		return nil, fmt.Errorf("nil SnapshotRecord")
	}
	tree, err := merkle.Load(r.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", r.Name, err)
	}
	if tree.Root() != r.Root {
		return nil, fmt.Errorf("snapshot %q: %w: record root %s does not match tree root %s",
			r.Name, merkle.ErrCorruptSnapshot, r.Root.Hex(), tree.Root().Hex())
	}
	return tree, nil
}

// ProofRecord is a membership proof issued for one entry of a named tree.
type ProofRecord struct {
	// ID is a random UUID assigned on creation.
	ID       string      `json:"id"`
	TreeName string      `json:"treeName"`
	Root     common.Hash `json:"root"`
	Leaf     common.Hash `json:"leaf"`

	// Index is the insertion index of the entry in the tree.
	Index int `json:"index"`

	Proof     merkle.Proof `json:"proof"`
	CreatedAt int64        `json:"createdAt"`
}

// NewProofRecord generates the proof of the entry at index and wraps it in a record
// with a fresh ID.
func NewProofRecord(treeName string, tree *merkle.Tree, index int) (*ProofRecord, error) {
	if tree == nil {
		return nil, fmt.Errorf("cannot create proof record for nil tree")
	}
	proof, err := tree.Proof(index)
	if err != nil {
		return nil, err
	}
	leaf, err := tree.LeafHash(index)
	if err != nil {
		return nil, err
	}
	return &ProofRecord{
		ID:        uuid.New().String(),
		TreeName:  treeName,
		Root:      tree.Root(),
		Leaf:      leaf,
		Index:     index,
		Proof:     proof,
		CreatedAt: time.Now().Unix(),
	}, nil
}

// Verify checks the stored proof against the stored root.
func (r *ProofRecord) Verify() (bool, error) {
	if r == nil {
		return false, fmt.Errorf("nil ProofRecord")
	}
	return merkle.Verify(r.Leaf, r.Proof, r.Root)
}

// SortSnapshots orders records by name.
func SortSnapshots(records []*SnapshotRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
}

// SortProofs orders records by creation time, then by ID.
func SortProofs(records []*ProofRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
}
