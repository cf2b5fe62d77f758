package merkle

import "errors"

var (
	// ErrSchemaMismatch is returned when an entry does not conform to the tree's leaf encoding.
	ErrSchemaMismatch = errors.New("entry does not match schema")

	// ErrEmptyInput is returned when building a tree from zero entries.
	ErrEmptyInput = errors.New("cannot build merkle tree from empty input")

	// ErrDuplicateLeaf is returned when two entries produce the same leaf hash.
	ErrDuplicateLeaf = errors.New("duplicate leaf")

	// ErrIndexOutOfRange is returned when a proof is requested for a non-existent entry.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEntryNotFound is returned when looking up an entry that is not part of the tree.
	ErrEntryNotFound = errors.New("entry not found in tree")

	// ErrMalformedProof is returned when a proof is structurally invalid.
	// A well-formed proof that does not match the root is not an error.
	ErrMalformedProof = errors.New("malformed proof")

	// ErrInvalidMultiProof is returned when a multiproof is requested for an invalid index set.
	ErrInvalidMultiProof = errors.New("invalid multiproof request")

	// ErrCorruptSnapshot is returned when a snapshot fails integrity checks on load.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrUnsupportedVersion is returned when a snapshot has an unknown format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot format")
)
