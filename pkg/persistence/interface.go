package persistence

// ITreePersistence defines the interface for persisting tree snapshots and issued
// proofs. All implementations must be thread-safe.
//
// The interface supports:
// - Snapshot management keyed by tree name (save, load, list, delete)
// - Proof records keyed by ID and grouped by tree name
// - Lifecycle management (close, health check)
type ITreePersistence interface {
	// Snapshot Management

	// SaveSnapshot persists a tree snapshot under record.Name.
	// Overwrites any existing snapshot with the same name.
	SaveSnapshot(record *SnapshotRecord) error

	// LoadSnapshot retrieves a snapshot by tree name.
	// Returns nil if the snapshot doesn't exist, error only on storage failure.
	LoadSnapshot(name string) (*SnapshotRecord, error)

	// ListSnapshots returns all persisted snapshots sorted by name.
	// Returns empty slice if none exist, error only on storage failure.
	ListSnapshots() ([]*SnapshotRecord, error)

	// DeleteSnapshot removes a snapshot by name.
	// Idempotent - returns nil if the snapshot doesn't exist.
	DeleteSnapshot(name string) error

	// Proof Management

	// SaveProof persists a proof record under record.ID.
	SaveProof(record *ProofRecord) error

	// LoadProof retrieves a proof record by ID.
	// Returns nil if the proof doesn't exist, error only on storage failure.
	LoadProof(id string) (*ProofRecord, error)

	// ListProofs returns the proofs issued for a tree, oldest first.
	// An empty treeName lists the proofs of every tree.
	ListProofs(treeName string) ([]*ProofRecord, error)

	// DeleteProof removes a proof record by ID.
	// Idempotent - returns nil if the proof doesn't exist.
	DeleteProof(id string) error

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
