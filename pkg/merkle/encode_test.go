package merkle

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	t.Run("Supported types", func(t *testing.T) {
		s, err := ParseSchema([]string{"address", "uint256", "int64", "bool", "bytes32", "bytes4", "bytes", "string"})
		require.NoError(t, err)
		assert.Equal(t, 8, s.Len())
		assert.Equal(t, "(address,uint256,int64,bool,bytes32,bytes4,bytes,string)", s.String())
	})

	t.Run("Aliases", func(t *testing.T) {
		s, err := ParseSchema([]string{" uint ", "int", "byte"})
		require.NoError(t, err)
		assert.Equal(t, []string{"uint256", "int256", "bytes1"}, s.Types())
	})

	t.Run("Rejected types", func(t *testing.T) {
		for _, typ := range []string{"uint7", "uint264", "bytes33", "address[]", "tuple", "float", ""} {
			_, err := ParseSchema([]string{typ})
			require.ErrorIs(t, err, ErrSchemaMismatch, "type %q", typ)
		}
	})

	t.Run("Empty schema", func(t *testing.T) {
		_, err := ParseSchema(nil)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("JSON round trip", func(t *testing.T) {
		s := MustParseSchema("address", "uint256")
		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, `["address","uint256"]`, string(data))

		var decoded Schema
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, s.Equal(decoded))
		assert.False(t, s.Equal(MustParseSchema("address")))
	})

	t.Run("MustParseSchema panics", func(t *testing.T) {
		assert.Panics(t, func() { MustParseSchema("nope") })
	})
}

func TestEncode_AddressAmount(t *testing.T) {
	encoded, err := addressAmountSchema.Encode(Entry{"0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", 666})
	require.NoError(t, err)
	require.Len(t, encoded, 64)

	expected := make([]byte, 64)
	copy(expected[12:32], common.HexToAddress("0x7Ac410F4E36873022b57821D7a8EB3D7513C045a").Bytes())
	big.NewInt(666).FillBytes(expected[32:64])
	assert.Equal(t, expected, encoded)
}

func TestEncode_EquivalentRepresentations(t *testing.T) {
	addr := "0x7Ac410F4E36873022b57821D7a8EB3D7513C045a"
	reference, err := addressAmountSchema.Encode(Entry{addr, 666})
	require.NoError(t, err)

	variants := []Entry{
		{strings.ToLower(addr), 666},
		{common.HexToAddress(addr), big.NewInt(666)},
		{addr, "666"},
		{addr, "0x29a"},
		{addr, json.Number("666")},
		{addr, float64(666)},
		{addr, uint16(666)},
		{common.HexToAddress(addr).Bytes(), int64(666)},
	}
	for i, v := range variants {
		encoded, err := addressAmountSchema.Encode(v)
		require.NoError(t, err, "variant %d", i)
		assert.Equal(t, reference, encoded, "variant %d", i)
	}
}

func TestEncode_IntegerRanges(t *testing.T) {
	testCases := []struct {
		typ   string
		value any
		ok    bool
	}{
		{"uint8", 255, true},
		{"uint8", 256, false},
		{"uint8", -1, false},
		{"uint24", "16777215", true},
		{"uint24", "16777216", false},
		{"uint64", "18446744073709551615", true},
		{"uint64", "18446744073709551616", false},
		{"int8", -128, true},
		{"int8", 127, true},
		{"int8", 128, false},
		{"int8", -129, false},
		{"int256", "-57896044618658097711785492504343953926634992332820282019728792003956564819968", true},
		{"int256", "57896044618658097711785492504343953926634992332820282019728792003956564819968", false},
		{"uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
		{"uint256", 1.5, false},
		{"uint256", "", false},
		{"uint256", "12abc", false},
		{"uint256", "--5", false},
		{"uint256", "+7", false},
		{"uint256", "-0", false},
		{"uint256", "-", false},
		{"int256", "--5", false},
		{"int256", "-+5", false},
		{"int256", json.Number("+7"), false},
		{"int256", "-5", true},
	}

	for _, tc := range testCases {
		s := MustParseSchema(tc.typ)
		_, err := s.Encode(Entry{tc.value})
		if tc.ok {
			assert.NoError(t, err, "%s %v", tc.typ, tc.value)
		} else {
			assert.ErrorIs(t, err, ErrSchemaMismatch, "%s %v", tc.typ, tc.value)
		}
	}
}

func TestEncode_AddressChecksum(t *testing.T) {
	testCases := []struct {
		name    string
		address string
		ok      bool
	}{
		{"Valid checksum", "0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", true},
		{"All lowercase", "0x7ac410f4e36873022b57821d7a8eb3d7513c045a", true},
		{"All uppercase", "0x7AC410F4E36873022B57821D7A8EB3D7513C045A", true},
		{"Without prefix", "7Ac410F4E36873022b57821D7a8EB3D7513C045a", true},
		{"Flipped case", "0x7ac410F4E36873022b57821D7a8EB3D7513C045a", false},
		{"Flipped case in the middle", "0x7Ac410F4E36873022b57821d7a8EB3D7513C045a", false},
	}

	reference, err := addressAmountSchema.Encode(Entry{"0x7Ac410F4E36873022b57821D7a8EB3D7513C045a", 1})
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := addressAmountSchema.Encode(Entry{tc.address, 1})
			if !tc.ok {
				require.ErrorIs(t, err, ErrSchemaMismatch)
				require.Contains(t, err.Error(), "checksum")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, reference, encoded)
		})
	}
}

func TestEncode_Bytes(t *testing.T) {
	s := MustParseSchema("bytes4", "bytes", "bytes32")

	_, err := s.Encode(Entry{"0xdeadbeef", "0x", common.Hash{1}})
	require.NoError(t, err)

	_, err = s.Encode(Entry{[4]byte{1, 2, 3, 4}, []byte("hello"), common.Hash{1}.Hex()})
	require.NoError(t, err)

	_, err = s.Encode(Entry{"0xdead", "0x", common.Hash{1}})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = s.Encode(Entry{"deadbeef", "0x", common.Hash{1}})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncode_BoolAndString(t *testing.T) {
	s := MustParseSchema("bool", "string")

	a, err := s.Encode(Entry{true, "hello"})
	require.NoError(t, err)
	b, err := s.Encode(Entry{"true", "hello"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = s.Encode(Entry{1, "hello"})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = s.Encode(Entry{false, 5})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCanonical(t *testing.T) {
	s := MustParseSchema("address", "uint256", "int8", "bool", "bytes4", "bytes", "string")

	canonical, err := s.Canonical(Entry{
		"0x7ac410f4e36873022b57821d7a8eb3d7513c045a",
		"0x29a",
		-5,
		true,
		[]byte{0xde, 0xad, 0xbe, 0xef},
		[]byte{},
		"hi",
	})
	require.NoError(t, err)
	assert.Equal(t, Entry{
		"0x7Ac410F4E36873022b57821D7a8EB3D7513C045a",
		"666",
		"-5",
		true,
		"0xdeadbeef",
		"0x",
		"hi",
	}, canonical)

	// the canonical form encodes exactly like the original
	again, err := s.Canonical(canonical)
	require.NoError(t, err)
	assert.Equal(t, canonical, again)
}

func TestNormalize_FieldCount(t *testing.T) {
	_, err := addressAmountSchema.Normalize(Entry{"0x2222222222222222222222222222222222222222"})
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.Contains(t, err.Error(), "expected 2 values, got 1")

	_, err = Schema{}.Normalize(Entry{1})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncode_DistinctEntries(t *testing.T) {
	a, err := addressAmountSchema.Encode(Entry{"0x2222222222222222222222222222222222222222", 1})
	require.NoError(t, err)
	b, err := addressAmountSchema.Encode(Entry{"0x2222222222222222222222222222222222222222", 2})
	require.NoError(t, err)
	assert.NotEqual(t, hexutil.Encode(a), hexutil.Encode(b))
}
