package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of ITreePersistence.
// This implementation is intended for TESTING and one-shot CLI runs.
//
// All data is stored in memory and will be lost when the process exits.
// Records are kept in serialized form, so callers can never mutate stored state.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Snapshot storage: name -> serialized SnapshotRecord
	snapshots map[string][]byte

	// Proof storage: id -> serialized ProofRecord
	proofs map[string][]byte

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		snapshots: make(map[string][]byte),
		proofs:    make(map[string][]byte),
	}
}

// SaveSnapshot persists a snapshot record.
func (m *MemoryPersistence) SaveSnapshot(record *persistence.SnapshotRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SnapshotRecord")
	}
	if record.Name == "" {
		return fmt.Errorf("cannot save SnapshotRecord without a name")
	}

	data, err := persistence.MarshalSnapshotRecord(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.snapshots[record.Name] = data
	return nil
}

// LoadSnapshot retrieves a snapshot record by name.
func (m *MemoryPersistence) LoadSnapshot(name string) (*persistence.SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, exists := m.snapshots[name]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return persistence.UnmarshalSnapshotRecord(data)
}

// ListSnapshots returns all snapshot records sorted by name.
func (m *MemoryPersistence) ListSnapshots() ([]*persistence.SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	result := make([]*persistence.SnapshotRecord, 0, len(m.snapshots))
	for _, data := range m.snapshots {
		record, err := persistence.UnmarshalSnapshotRecord(data)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	persistence.SortSnapshots(result)

	return result, nil
}

// DeleteSnapshot removes a snapshot record.
func (m *MemoryPersistence) DeleteSnapshot(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.snapshots, name)
	return nil
}

// SaveProof persists a proof record.
func (m *MemoryPersistence) SaveProof(record *persistence.ProofRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil ProofRecord")
	}
	if record.ID == "" {
		return fmt.Errorf("cannot save ProofRecord without an ID")
	}

	data, err := persistence.MarshalProofRecord(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.proofs[record.ID] = data
	return nil
}

// LoadProof retrieves a proof record by ID.
func (m *MemoryPersistence) LoadProof(id string) (*persistence.ProofRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, exists := m.proofs[id]
	if !exists {
		return nil, nil
	}

	return persistence.UnmarshalProofRecord(data)
}

// ListProofs returns the proof records of a tree, or of every tree when treeName is empty.
func (m *MemoryPersistence) ListProofs(treeName string) ([]*persistence.ProofRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	result := make([]*persistence.ProofRecord, 0)
	for _, data := range m.proofs {
		record, err := persistence.UnmarshalProofRecord(data)
		if err != nil {
			return nil, err
		}
		if treeName != "" && record.TreeName != treeName {
			continue
		}
		result = append(result, record)
	}
	persistence.SortProofs(result)

	return result, nil
}

// DeleteProof removes a proof record.
func (m *MemoryPersistence) DeleteProof(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.proofs, id)
	return nil
}

// Close shuts down the persistence layer.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}

	return nil
}
