package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PersistenceFactory opens a fresh, empty persistence layer for one subtest.
type PersistenceFactory func(t *testing.T) persistence.ITreePersistence

// RunPersistenceSuite exercises the behavior every ITreePersistence backend shares.
// Names are suffixed with the subtest name so backends sharing a server stay isolated.
func RunPersistenceSuite(t *testing.T, open PersistenceFactory) {
	t.Run("SaveAndLoadSnapshot", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		record := CreateTestSnapshotRecord(t, uniqueName(t, "airdrop"), 13)
		require.NoError(t, p.SaveSnapshot(record))

		loaded, err := p.LoadSnapshot(record.Name)
		require.NoError(t, err)
		RequireSameSnapshot(t, record, loaded)
	})

	t.Run("LoadSnapshot_NotFound", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadSnapshot(uniqueName(t, "missing"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveSnapshot_Nil", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		err := p.SaveSnapshot(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil SnapshotRecord")
	})

	t.Run("SaveSnapshot_Overwrite", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		name := uniqueName(t, "tree")
		require.NoError(t, p.SaveSnapshot(CreateTestSnapshotRecord(t, name, 3)))
		second := CreateTestSnapshotRecord(t, name, 7)
		require.NoError(t, p.SaveSnapshot(second))

		loaded, err := p.LoadSnapshot(name)
		require.NoError(t, err)
		RequireSameSnapshot(t, second, loaded)
	})

	t.Run("ListAndDeleteSnapshots", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		names := []string{uniqueName(t, "c"), uniqueName(t, "a"), uniqueName(t, "b")}
		for i, name := range names {
			require.NoError(t, p.SaveSnapshot(CreateTestSnapshotRecord(t, name, i+1)))
		}

		listed, err := p.ListSnapshots()
		require.NoError(t, err)
		listedNames := snapshotNames(listed, names)
		assert.Equal(t, []string{names[1], names[2], names[0]}, listedNames)

		require.NoError(t, p.DeleteSnapshot(names[1]))
		// Idempotent
		require.NoError(t, p.DeleteSnapshot(names[1]))

		loaded, err := p.LoadSnapshot(names[1])
		require.NoError(t, err)
		assert.Nil(t, loaded)

		listed, err = p.ListSnapshots()
		require.NoError(t, err)
		assert.Equal(t, []string{names[2], names[0]}, snapshotNames(listed, names))
	})

	t.Run("Proofs", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		first := CreateTestSnapshotRecord(t, uniqueName(t, "first"), 4)
		second := CreateTestSnapshotRecord(t, uniqueName(t, "second"), 3)
		firstProofs := CreateTestProofRecords(t, first)
		secondProofs := CreateTestProofRecords(t, second)
		for _, r := range append(append([]*persistence.ProofRecord{}, firstProofs...), secondProofs...) {
			require.NoError(t, p.SaveProof(r))
		}

		loaded, err := p.LoadProof(firstProofs[2].ID)
		require.NoError(t, err)
		require.Equal(t, firstProofs[2], loaded)
		valid, err := loaded.Verify()
		require.NoError(t, err)
		assert.True(t, valid)

		listed, err := p.ListProofs(first.Name)
		require.NoError(t, err)
		assert.Len(t, listed, len(firstProofs))
		for _, r := range listed {
			assert.Equal(t, first.Name, r.TreeName)
		}

		all, err := p.ListProofs("")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), len(firstProofs)+len(secondProofs))

		require.NoError(t, p.DeleteProof(firstProofs[2].ID))
		require.NoError(t, p.DeleteProof(firstProofs[2].ID))
		loaded, err = p.LoadProof(firstProofs[2].ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		listed, err = p.ListProofs(first.Name)
		require.NoError(t, err)
		assert.Len(t, listed, len(firstProofs)-1)

		listed, err = p.ListProofs(uniqueName(t, "nothing"))
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("SaveProof_Invalid", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		err := p.SaveProof(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil ProofRecord")

		err = p.SaveProof(&persistence.ProofRecord{TreeName: "x"})
		require.Error(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		p := open(t)

		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		// Second close should also succeed
		require.NoError(t, p.Close())

		err := p.SaveSnapshot(CreateTestSnapshotRecord(t, uniqueName(t, "late"), 1))
		require.ErrorIs(t, err, persistence.ErrClosed)

		_, err = p.LoadSnapshot("late")
		require.ErrorIs(t, err, persistence.ErrClosed)

		_, err = p.ListProofs("")
		require.ErrorIs(t, err, persistence.ErrClosed)

		err = p.HealthCheck()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")
	})

	t.Run("ThreadSafety", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		record := CreateTestSnapshotRecord(t, uniqueName(t, "shared"), 8)
		proofs := CreateTestProofRecords(t, record)

		var wg sync.WaitGroup
		numGoroutines := 8

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				assert.NoError(t, p.SaveSnapshot(record))
				assert.NoError(t, p.SaveProof(proofs[id%len(proofs)]))

				_, err := p.LoadSnapshot(record.Name)
				assert.NoError(t, err)
				_, err = p.ListSnapshots()
				assert.NoError(t, err)
				_, err = p.ListProofs(record.Name)
				assert.NoError(t, err)
			}(i)
		}

		wg.Wait()

		listed, err := p.ListProofs(record.Name)
		require.NoError(t, err)
		assert.Len(t, listed, numGoroutines)
	})
}

func uniqueName(t *testing.T, base string) string {
	return fmt.Sprintf("%s/%s", t.Name(), base)
}

// snapshotNames returns the names of listed records that belong to want, in listed order
func snapshotNames(listed []*persistence.SnapshotRecord, want []string) []string {
	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}
	names := make([]string, 0, len(want))
	for _, r := range listed {
		if wanted[r.Name] {
			names = append(names, r.Name)
		}
	}
	return names
}
