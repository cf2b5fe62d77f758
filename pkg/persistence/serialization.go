package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalSnapshotRecord serializes a SnapshotRecord to JSON bytes.
func MarshalSnapshotRecord(r *SnapshotRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil SnapshotRecord")
	}
	if r.Snapshot == nil {
		return nil, fmt.Errorf("cannot marshal SnapshotRecord %q without a snapshot", r.Name)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SnapshotRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshotRecord deserializes a SnapshotRecord from JSON bytes.
// Numbers inside entry values are kept as json.Number.
func UnmarshalSnapshotRecord(data []byte) (*SnapshotRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var r SnapshotRecord
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to SnapshotRecord: %w", err)
	}
	if r.Snapshot == nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to SnapshotRecord: missing snapshot")
	}

	return &r, nil
}

// MarshalProofRecord serializes a ProofRecord to JSON bytes.
func MarshalProofRecord(r *ProofRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil ProofRecord")
	}

	return json.Marshal(r)
}

// UnmarshalProofRecord deserializes a ProofRecord from JSON bytes.
func UnmarshalProofRecord(data []byte) (*ProofRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r ProofRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ProofRecord: %w", err)
	}

	return &r, nil
}
