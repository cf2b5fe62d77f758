package merkle

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethmath "github.com/ethereum/go-ethereum/common/math"
)

// maxSafeFloat is the largest integer a float64 (e.g. a decoded JSON number) holds exactly.
const maxSafeFloat = 1 << 53

// Encode returns the standard ABI encoding (abi.encode) of the entry under the schema.
func (s Schema) Encode(entry Entry) ([]byte, error) {
	values, err := s.Normalize(entry)
	if err != nil {
		return nil, err
	}

	encoded, err := s.args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return encoded, nil
}

// Normalize converts each value of the entry into the Go type the ABI packer expects
// for its declared field type, rejecting values that do not fit.
func (s Schema) Normalize(entry Entry) ([]any, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("%w: schema is empty", ErrSchemaMismatch)
	}
	if len(entry) != len(s.args) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrSchemaMismatch, len(s.args), len(entry))
	}

	out := make([]any, len(entry))
	for i, v := range entry {
		nv, err := normalizeValue(s.args[i].Type, v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d (%s): %v", ErrSchemaMismatch, i, s.names[i], err)
		}
		out[i] = nv
	}
	return out, nil
}

// Canonical returns a JSON-safe representation of the entry: checksummed addresses,
// integers as decimal strings and byte strings as 0x-prefixed hex.
// Normalizing a canonical entry yields the same values as normalizing the original.
func (s Schema) Canonical(entry Entry) (Entry, error) {
	values, err := s.Normalize(entry)
	if err != nil {
		return nil, err
	}

	out := make(Entry, len(values))
	for i, v := range values {
		out[i] = canonicalValue(v)
	}
	return out, nil
}

func normalizeValue(typ abi.Type, v any) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.BoolTy:
		return toBool(v)
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return fitInteger(typ, n)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", typ.Size, len(b))
		}
		arr := reflect.New(reflect.ArrayOf(typ.Size, reflect.TypeOf(byte(0)))).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.StringTy:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return str, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", typ.String())
	}
}

func toAddress(v any) (common.Address, error) {
	switch val := v.(type) {
	case common.Address:
		return val, nil
	case *common.Address:
		if val == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *val, nil
	case string:
		if !common.IsHexAddress(val) {
			return common.Address{}, fmt.Errorf("invalid address %q", val)
		}
		hexPart := strings.TrimPrefix(strings.TrimPrefix(val, "0x"), "0X")
		if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
			// mixed case carries an EIP-55 checksum
			mixed, err := common.NewMixedcaseAddressFromString("0x" + hexPart)
			if err != nil || !mixed.ValidChecksum() {
				return common.Address{}, fmt.Errorf("address %q has an invalid checksum", val)
			}
		}
		return common.HexToAddress(val), nil
	case []byte:
		if len(val) != common.AddressLength {
			return common.Address{}, fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(val))
		}
		return common.BytesToAddress(val), nil
	default:
		return common.Address{}, fmt.Errorf("expected address, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch val {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("invalid bool %q", val)
	default:
		return false, fmt.Errorf("expected bool, got %T", v)
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch val := v.(type) {
	case *big.Int:
		if val == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(val), nil
	case big.Int:
		return new(big.Int).Set(&val), nil
	case int:
		return big.NewInt(int64(val)), nil
	case int8:
		return big.NewInt(int64(val)), nil
	case int16:
		return big.NewInt(int64(val)), nil
	case int32:
		return big.NewInt(int64(val)), nil
	case int64:
		return big.NewInt(val), nil
	case uint:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint64:
		return new(big.Int).SetUint64(val), nil
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > maxSafeFloat {
			return nil, fmt.Errorf("number %v is not an exactly representable integer", val)
		}
		return big.NewInt(int64(val)), nil
	case json.Number:
		return parseInteger(val.String())
	case string:
		return parseInteger(val)
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	// SetString would accept a second sign
	if digits == "" || digits[0] == '-' || digits[0] == '+' {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	n, ok := gethmath.ParseBig256(digits)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if neg {
		if n.Sign() == 0 {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		n.Neg(n)
	}
	return n, nil
}

// fitInteger range checks n against the declared width and converts it to the Go type
// the ABI packer requires: fixed-size ints for 8/16/32/64 bits, *big.Int otherwise.
func fitInteger(typ abi.Type, n *big.Int) (any, error) {
	bits := uint(typ.Size)
	if typ.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", n, typ.String())
		}
		if n.BitLen() > int(bits) {
			return nil, fmt.Errorf("value %s overflows %s", n, typ.String())
		}
		switch bits {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		}
		return n, nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	minVal := new(big.Int).Neg(limit)
	if n.Cmp(minVal) < 0 || n.Cmp(limit) >= 0 {
		return nil, fmt.Errorf("value %s overflows %s", n, typ.String())
	}
	switch bits {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	}
	return n, nil
}

func toBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case string:
		b, err := hexutil.Decode(val)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes %q: %v", val, err)
		}
		return b, nil
	case common.Hash:
		return val.Bytes(), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}

func canonicalValue(v any) any {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case bool:
		return val
	case string:
		return val
	case []byte:
		return hexutil.Encode(val)
	case *big.Int:
		return val.String()
	case uint8, uint16, uint32, uint64, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	}

	// fixed-size byte arrays
	rv := reflect.ValueOf(v)
	b := make([]byte, rv.Len())
	reflect.Copy(reflect.ValueOf(b), rv)
	return hexutil.Encode(b)
}
