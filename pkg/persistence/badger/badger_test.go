package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Layr-Labs/merkletree-go/pkg/logger"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/Layr-Labs/merkletree-go/pkg/testutil"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ persistence.ITreePersistence = (*BadgerPersistence)(nil)

func newTestBadger(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence(t *testing.T) {
	testutil.RunPersistenceSuite(t, func(t *testing.T) persistence.ITreePersistence {
		return newTestBadger(t, t.TempDir())
	})
}

func TestBadgerPersistence_Durability(t *testing.T) {
	tmpDir := t.TempDir()
	record := testutil.CreateTestSnapshotRecord(t, "airdrop", 13)
	proofs := testutil.CreateTestProofRecords(t, record)

	// First instance - save data
	bp1 := newTestBadger(t, tmpDir)
	require.NoError(t, bp1.SaveSnapshot(record))
	for _, p := range proofs {
		require.NoError(t, bp1.SaveProof(p))
	}
	require.NoError(t, bp1.Close())

	// Second instance - verify data survived the restart
	bp2 := newTestBadger(t, tmpDir)
	defer func() { _ = bp2.Close() }()

	loaded, err := bp2.LoadSnapshot("airdrop")
	require.NoError(t, err)
	testutil.RequireSameSnapshot(t, record, loaded)

	listed, err := bp2.ListProofs("airdrop")
	require.NoError(t, err)
	assert.Len(t, listed, len(proofs))
	for _, p := range listed {
		valid, err := p.Verify()
		require.NoError(t, err)
		assert.True(t, valid)
	}
}

func TestBadgerPersistence_SchemaVersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()

	bp := newTestBadger(t, tmpDir)
	require.NoError(t, bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, bp.Close())

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	_, err := NewBadgerPersistence(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBadgerPersistence_SkipsCorruptRecords(t *testing.T) {
	bp := newTestBadger(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	record := testutil.CreateTestSnapshotRecord(t, "good", 2)
	require.NoError(t, bp.SaveSnapshot(record))
	require.NoError(t, bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyPrefixSnapshot+"bad"), []byte("{not json"))
	}))

	listed, err := bp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "good", listed[0].Name)

	_, err = bp.LoadSnapshot("bad")
	require.Error(t, err)
}

func TestBadgerPersistence_RelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmpDir := t.TempDir()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(wd) }()

	bp := newTestBadger(t, "data")
	require.NoError(t, bp.HealthCheck())
	require.NoError(t, bp.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "data"))
	require.NoError(t, err)
}
