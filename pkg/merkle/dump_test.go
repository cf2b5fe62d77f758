package merkle

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireEquivalentTrees asserts two trees have the same root, entries and proofs
func requireEquivalentTrees(t *testing.T, expected, actual *Tree) {
	t.Helper()

	require.Equal(t, expected.Root(), actual.Root())
	require.Equal(t, expected.Len(), actual.Len())
	require.Equal(t, expected.Nodes(), actual.Nodes())
	require.Equal(t, expected.Entries(), actual.Entries())

	for i := 0; i < expected.Len(); i++ {
		p1, err := expected.Proof(i)
		require.NoError(t, err)
		p2, err := actual.Proof(i)
		require.NoError(t, err)
		require.Equal(t, p1, p2, "proof %d differs", i)

		l1, err := expected.LeafHash(i)
		require.NoError(t, err)
		l2, err := actual.LeafHash(i)
		require.NoError(t, err)
		require.Equal(t, l1, l2)
	}
}

func TestDumpLoad_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 5, 13, 32} {
		tree := buildTestTree(t, n)

		loaded, err := Load(tree.Dump())
		require.NoError(t, err)
		requireEquivalentTrees(t, tree, loaded)

		idx, err := loaded.IndexOf(createTestEntries(n)[n-1])
		require.NoError(t, err)
		assert.Equal(t, n-1, idx)
	}
}

func TestDumpLoad_JSONRoundTrip(t *testing.T) {
	tree := buildTestTree(t, 13)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	loaded, err := LoadJSON(data)
	require.NoError(t, err)
	requireEquivalentTrees(t, tree, loaded)

	again, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestDump_Format(t *testing.T) {
	tree, err := Build([]Entry{
		{"0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", 666},
		{"0x2222222222222222222222222222222222222222", 123},
	}, addressAmountSchema)
	require.NoError(t, err)

	s := tree.Dump()
	assert.Equal(t, FormatStandardV1, s.Format)
	assert.Equal(t, []string{"address", "uint256"}, s.LeafEncoding)
	assert.Equal(t, tree.Root(), s.Root)
	assert.Len(t, s.Tree, 3)
	require.Len(t, s.Values, 2)
	assert.Equal(t, []any{"0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", "666"}, s.Values[0].Value)

	for i, v := range s.Values {
		leaf, err := tree.LeafHash(i)
		require.NoError(t, err)
		assert.Equal(t, leaf, s.Tree[v.TreeIndex])
	}
}

func TestLoad_AcceptsNumericValues(t *testing.T) {
	data := []byte(`{
		"format": "standard-v1",
		"leafEncoding": ["address", "uint256"],
		"tree": [],
		"values": [{"value": ["0x2222222222222222222222222222222222222222", 123], "treeIndex": 0}]
	}`)

	tree, err := Build([]Entry{{"0x2222222222222222222222222222222222222222", 123}}, addressAmountSchema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["tree"] = []string{tree.Root().Hex()}
	doc["root"] = tree.Root().Hex()
	data, err = json.Marshal(doc)
	require.NoError(t, err)

	loaded, err := LoadJSON(data)
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), loaded.Root())
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	tree := buildTestTree(t, 3)

	s := tree.Dump()
	s.Format = "standard-v9"
	_, err := Load(s)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	_, err = LoadJSON(data)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoad_Corrupt(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"Tampered internal node", func(s *Snapshot) { s.Tree[1][0] ^= 0x01 }},
		{"Tampered leaf", func(s *Snapshot) { s.Tree[len(s.Tree)-1][31] ^= 0x01 }},
		{"Tampered value", func(s *Snapshot) {
			s.Values[2].Value = []any{s.Values[2].Value.([]any)[0], "999999"}
		}},
		{"Root mismatch", func(s *Snapshot) { s.Root[0] ^= 0x01 }},
		{"Missing root", func(s *Snapshot) { s.Root = common.Hash{} }},
		{"Missing node", func(s *Snapshot) { s.Tree = s.Tree[:len(s.Tree)-1] }},
		{"Tree index outside leaves", func(s *Snapshot) { s.Values[0].TreeIndex = 0 }},
		{"Duplicate tree index", func(s *Snapshot) { s.Values[1].TreeIndex = s.Values[0].TreeIndex }},
		{"Swapped values", func(s *Snapshot) {
			s.Values[0].TreeIndex, s.Values[1].TreeIndex = s.Values[1].TreeIndex, s.Values[0].TreeIndex
		}},
		{"Leaves out of order", func(s *Snapshot) {
			last := len(s.Tree) - 1
			s.Tree[last], s.Tree[last-1] = s.Tree[last-1], s.Tree[last]
			for i := range s.Values {
				switch s.Values[i].TreeIndex {
				case last:
					s.Values[i].TreeIndex = last - 1
				case last - 1:
					s.Values[i].TreeIndex = last
				}
			}
		}},
		{"Value is not a tuple", func(s *Snapshot) { s.Values[0].Value = "0x00" }},
		{"Malformed entry", func(s *Snapshot) { s.Values[0].Value = []any{"0x12", "1"} }},
		{"Bad leaf encoding", func(s *Snapshot) { s.LeafEncoding = []string{"address", "uint7"} }},
		{"No values", func(s *Snapshot) { s.Values = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := buildTestTree(t, 6).Dump()
			tc.mutate(s)

			tree, err := Load(s)
			require.ErrorIs(t, err, ErrCorruptSnapshot)
			require.Nil(t, tree)
		})
	}

	t.Run("Nil snapshot", func(t *testing.T) {
		_, err := Load(nil)
		require.ErrorIs(t, err, ErrCorruptSnapshot)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		_, err := LoadJSON([]byte(`{"format": "standard-v1", "tree": ["0x1234"]}`))
		require.ErrorIs(t, err, ErrCorruptSnapshot)

		_, err = LoadJSON(nil)
		require.ErrorIs(t, err, ErrCorruptSnapshot)
	})

	t.Run("Root field absent", func(t *testing.T) {
		var doc map[string]any
		data, err := MarshalSnapshot(buildTestTree(t, 3).Dump())
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &doc))
		delete(doc, "root")
		data, err = json.Marshal(doc)
		require.NoError(t, err)

		tree, err := LoadJSON(data)
		require.ErrorIs(t, err, ErrCorruptSnapshot)
		require.Nil(t, tree)
	})
}

func TestDumpLoad_SimpleFormat(t *testing.T) {
	source := buildTestTree(t, 7)
	leaves := make([]common.Hash, source.Len())
	for i := range leaves {
		leaf, err := source.LeafHash(i)
		require.NoError(t, err)
		leaves[i] = leaf
	}

	tree, err := FromLeaves(leaves)
	require.NoError(t, err)

	s := tree.Dump()
	assert.Equal(t, FormatSimpleV1, s.Format)
	assert.Empty(t, s.LeafEncoding)

	data, err := MarshalSnapshot(s)
	require.NoError(t, err)

	loaded, err := LoadJSON(data)
	require.NoError(t, err)
	requireEquivalentTrees(t, tree, loaded)

	s.Values[3].Value = leaves[4].Hex()
	_, err = Load(s)
	require.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestMarshalSnapshot_Nil(t *testing.T) {
	_, err := MarshalSnapshot(nil)
	require.Error(t, err)
}
