package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Layr-Labs/merkletree-go/internal/sample"
	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI against a badger store in dataDir and returns its output
func runApp(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"merkletree", "--persistence", "badger", "--data-path", dataDir}, args...)
	err := app.Run(full)
	return out.String(), err
}

func writeEntries(t *testing.T, dir string, entries [][]any) string {
	t.Helper()

	data, err := json.Marshal(entries)
	require.NoError(t, err)
	path := filepath.Join(dir, "entries.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func sampleEntriesJSON() [][]any {
	entries := sample.Entries()
	raw := make([][]any, len(entries))
	for i, e := range entries {
		raw[i] = []any(e)
	}
	return raw
}

func TestSampleCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "sample")
	require.NoError(t, err)

	tree, err := merkle.Build(sample.Entries(), sample.Schema())
	require.NoError(t, err)
	leaf, err := tree.LeafHash(0)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "Generating merkle", lines[0])
	assert.Contains(t, out, "I: 0\n")
	assert.Contains(t, out, "ROOT: "+tree.Root().Hex())
	assert.Contains(t, out, "LEAF "+leaf.Hex())

	loaded, err := merkle.LoadJSON([]byte(lines[1]))
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), loaded.Root())
}

func TestEntriesWithAddress(t *testing.T) {
	tree, err := merkle.Build([]merkle.Entry{
		{"0x2222222222222222222222222222222222222222", 1},
		{strings.ToLower(sample.TargetAddress), 666},
	}, sample.Schema())
	require.NoError(t, err)

	testCases := []struct {
		name    string
		address string
		want    []int
	}{
		{"Checksummed", sample.TargetAddress, []int{1}},
		{"Lowercase", strings.ToLower(sample.TargetAddress), []int{1}},
		{"Uppercase", "0x" + strings.ToUpper(sample.TargetAddress[2:]), []int{1}},
		{"Absent", "0x3333333333333333333333333333333333333333", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := entriesWithAddress(tree, common.HexToAddress(tc.address))
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("Tree without entries", func(t *testing.T) {
		leaf, err := tree.LeafHash(0)
		require.NoError(t, err)
		leafTree, err := merkle.FromLeaves([]common.Hash{leaf})
		require.NoError(t, err)
		assert.Empty(t, entriesWithAddress(leafTree, common.HexToAddress(sample.TargetAddress)))
	})
}

func TestBuildProveVerify(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "db")
	input := writeEntries(t, dir, sampleEntriesJSON())
	dumpPath := filepath.Join(dir, "tree.json")

	_, err := runApp(t, dataDir, "build", "--input", input, "--output", dumpPath, "--name", "airdrop")
	require.NoError(t, err)

	dump, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	tree, err := merkle.LoadJSON(dump)
	require.NoError(t, err)

	t.Run("Prove from stored snapshot", func(t *testing.T) {
		out, err := runApp(t, dataDir, "prove", "--name", "airdrop", "--index", "3", "--save")
		require.NoError(t, err)

		var doc proofDocument
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, 3, doc.Index)
		assert.Equal(t, tree.Root(), doc.Root)

		proofPath := filepath.Join(dir, "proof.json")
		require.NoError(t, os.WriteFile(proofPath, []byte(out), 0644))

		out, err = runApp(t, dataDir, "verify", "--proof", proofPath)
		require.NoError(t, err)
		assert.Contains(t, out, "proof is valid")

		out, err = runApp(t, dataDir, "list", "--proofs", "airdrop")
		require.NoError(t, err)
		assert.Contains(t, out, doc.ID)
	})

	t.Run("Prove by value from dump", func(t *testing.T) {
		out, err := runApp(t, dataDir, "prove", "--dump", dumpPath,
			"--value", `["0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", 666]`)
		require.NoError(t, err)

		var doc proofDocument
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, 0, doc.Index)

		hashes := make([]string, len(doc.Proof))
		for i, h := range doc.Proof.Hashes() {
			hashes[i] = h.Hex()
		}

		_, err = runApp(t, dataDir, "verify",
			"--root", tree.Root().Hex(),
			"--value", `["0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", "666"]`,
			"--proof", strings.Join(hashes, ","))
		require.NoError(t, err)

		_, err = runApp(t, dataDir, "verify",
			"--root", tree.Root().Hex(),
			"--value", `["0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", "667"]`,
			"--proof", strings.Join(hashes, ","))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid")
	})

	t.Run("Render", func(t *testing.T) {
		out, err := runApp(t, dataDir, "render", "--name", "airdrop")
		require.NoError(t, err)
		assert.Equal(t, tree.Render(), out)
	})

	t.Run("List and delete", func(t *testing.T) {
		out, err := runApp(t, dataDir, "list")
		require.NoError(t, err)
		assert.Contains(t, out, "airdrop\troot="+tree.Root().Hex())

		out, err = runApp(t, dataDir, "delete", "--name", "airdrop")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted airdrop")

		out, err = runApp(t, dataDir, "list")
		require.NoError(t, err)
		assert.NotContains(t, out, "airdrop")

		_, err = runApp(t, dataDir, "prove", "--name", "airdrop", "--index", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "db")

	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"Duplicate entries", []string{"build", "--input", writeEntries(t, dir, [][]any{{"0x2222222222222222222222222222222222222222", 1}, {"0x2222222222222222222222222222222222222222", "1"}})}, "duplicate leaf"},
		{"Bad schema", []string{"build", "--input", "unused.json", "--schema", "address,float"}, "invalid --schema"},
		{"Missing input", []string{"build", "--input", filepath.Join(dir, "missing.json")}, "failed to read entries"},
		{"Prove without tree", []string{"prove", "--index", "0"}, "--dump or --name"},
		{"Save without name", []string{"prove", "--dump", "x.json", "--index", "0", "--save"}, "--save requires --name"},
		{"Malformed proof", []string{"verify", "--root", "0x00", "--leaf", "0x00", "--proof", "0x1234"}, "invalid --proof"},
		{"Verify without root", []string{"verify", "--proof", "[]"}, "--root is required"},
		{"Unknown persistence", []string{"--persistence", "postgres", "list"}, "invalid configuration"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runApp(t, dataDir, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
