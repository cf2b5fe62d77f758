package merkle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Entry is one ordered tuple of values committed to by a leaf.
// Values are loosely typed on input and normalized against the tree's Schema.
type Entry []any

// Schema is the ordered list of Solidity ABI types shared by every entry of a tree.
// It is the "leaf encoding" of the tree.
type Schema struct {
	names []string
	args  abi.Arguments
}

// typeAliases maps shorthand Solidity type names to their canonical form.
var typeAliases = map[string]string{
	"uint": "uint256",
	"int":  "int256",
	"byte": "bytes1",
}

// ParseSchema builds a Schema from Solidity type names such as "address" or "uint256".
// Only elementary types are supported: address, bool, uintN, intN, bytesN, bytes and string.
func ParseSchema(types []string) (Schema, error) {
	if len(types) == 0 {
		return Schema{}, fmt.Errorf("%w: schema must declare at least one field", ErrSchemaMismatch)
	}

	names := make([]string, len(types))
	args := make(abi.Arguments, len(types))
	for i, raw := range types {
		name := strings.TrimSpace(raw)
		if alias, ok := typeAliases[name]; ok {
			name = alias
		}

		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			return Schema{}, fmt.Errorf("%w: field %d: unsupported type %q: %v", ErrSchemaMismatch, i, raw, err)
		}
		switch typ.T {
		case abi.UintTy, abi.IntTy:
			// the abi parser accepts any width, Solidity only multiples of 8 up to 256
			if typ.Size < 8 || typ.Size > 256 || typ.Size%8 != 0 {
				return Schema{}, fmt.Errorf("%w: field %d: invalid integer width in %q", ErrSchemaMismatch, i, raw)
			}
		case abi.FixedBytesTy:
			if typ.Size < 1 || typ.Size > 32 {
				return Schema{}, fmt.Errorf("%w: field %d: invalid bytes width in %q", ErrSchemaMismatch, i, raw)
			}
		case abi.AddressTy, abi.BoolTy, abi.BytesTy, abi.StringTy:
		default:
			return Schema{}, fmt.Errorf("%w: field %d: type %q is not an elementary type", ErrSchemaMismatch, i, raw)
		}

		names[i] = typ.String()
		args[i] = abi.Argument{Type: typ}
	}

	return Schema{names: names, args: args}, nil
}

// MustParseSchema is like ParseSchema but panics on error. Intended for static schemas.
func MustParseSchema(types ...string) Schema {
	s, err := ParseSchema(types)
	if err != nil {
		panic(err)
	}
	return s
}

// Types returns the canonical type names of the schema.
func (s Schema) Types() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of fields per entry.
func (s Schema) Len() int {
	return len(s.names)
}

// IsZero reports whether the schema was never initialized.
func (s Schema) IsZero() bool {
	return len(s.names) == 0
}

// Equal reports whether two schemas declare the same field types.
func (s Schema) Equal(other Schema) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	return "(" + strings.Join(s.names, ",") + ")"
}

// MarshalJSON encodes the schema as its list of type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.names)
}

// UnmarshalJSON decodes a list of type names.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var types []string
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}
	parsed, err := ParseSchema(types)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
