package testutil

import (
	"math/big"
	"testing"

	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// AddressAmountSchema is the (address, uint256) leaf encoding used by most tests.
var AddressAmountSchema = merkle.MustParseSchema("address", "uint256")

// CreateTestEntries creates n (address, uint256) entries with unique addresses
func CreateTestEntries(n int) []merkle.Entry {
	entries := make([]merkle.Entry, n)
	for i := 0; i < n; i++ {
		addr := common.BigToAddress(big.NewInt(int64(i + 1)))
		entries[i] = merkle.Entry{addr.Hex(), uint64(1000 + i)}
	}
	return entries
}

// CreateTestTree builds a tree over CreateTestEntries(n)
func CreateTestTree(t *testing.T, n int) *merkle.Tree {
	t.Helper()

	tree, err := merkle.Build(CreateTestEntries(n), AddressAmountSchema)
	require.NoError(t, err)
	return tree
}

// CreateTestSnapshotRecord builds a tree of n entries and wraps it in a named record
func CreateTestSnapshotRecord(t *testing.T, name string, n int) *persistence.SnapshotRecord {
	t.Helper()

	record, err := persistence.NewSnapshotRecord(name, CreateTestTree(t, n))
	require.NoError(t, err)
	return record
}

// CreateTestProofRecords issues one proof record per entry of the tree behind record
func CreateTestProofRecords(t *testing.T, record *persistence.SnapshotRecord) []*persistence.ProofRecord {
	t.Helper()

	tree, err := record.Tree()
	require.NoError(t, err)

	proofs := make([]*persistence.ProofRecord, tree.Len())
	for i := range proofs {
		proofs[i], err = persistence.NewProofRecord(record.Name, tree, i)
		require.NoError(t, err)
	}
	return proofs
}

// RequireSameSnapshot asserts that a stored record round-tripped without losing
// anything needed to rebuild the tree
func RequireSameSnapshot(t *testing.T, expected, actual *persistence.SnapshotRecord) {
	t.Helper()

	require.NotNil(t, actual)
	require.Equal(t, expected.Name, actual.Name)
	require.Equal(t, expected.Root, actual.Root)
	require.Equal(t, expected.CreatedAt, actual.CreatedAt)

	want, err := expected.Tree()
	require.NoError(t, err)
	got, err := actual.Tree()
	require.NoError(t, err)
	require.Equal(t, want.Nodes(), got.Nodes())
	require.Equal(t, want.Entries(), got.Entries())
}
