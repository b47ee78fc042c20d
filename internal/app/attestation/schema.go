package attestation

import (
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	bytes32Pattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	bytesPattern     = regexp.MustCompile(`^0x([0-9a-fA-F]{2})*$`)
)

// Field is one "type name" pair of a schema definition.
type Field struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ParseSchema splits a comma separated "type name" list and checks every type
// is one the registry can encode.
func ParseSchema(definition string) ([]Field, error) {
	if strings.TrimSpace(definition) == "" {
		return nil, fmt.Errorf("%w: empty definition", ErrMalformedSchema)
	}

	var fields []Field
	seen := make(map[string]struct{})
	for _, pair := range strings.Split(definition, ",") {
		tokens := strings.Fields(pair)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("%w: %q is not a \"type name\" pair", ErrMalformedSchema, strings.TrimSpace(pair))
		}
		f := Field{Type: tokens[0], Name: tokens[1]}
		if !knownType(f.Type) {
			return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedSchema, f.Type)
		}
		if !fieldNamePattern.MatchString(f.Name) {
			return nil, fmt.Errorf("%w: invalid field name %q", ErrMalformedSchema, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrMalformedSchema, f.Name)
		}
		seen[f.Name] = struct{}{}
		fields = append(fields, f)
	}
	return fields, nil
}

// CanonicalDefinition re-joins parsed fields the way the UID is computed, so
// spacing differences do not produce different schemas.
func CanonicalDefinition(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Type + " " + f.Name
	}
	return strings.Join(parts, ",")
}

func knownType(t string) bool {
	switch t {
	case "address", "bool", "string", "bytes", "bytes32":
		return true
	}
	_, _, ok := intType(t)
	return ok
}

// intType parses uintN / intN with N a multiple of 8 up to 256.
func intType(t string) (signed bool, bits int, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(t, "uint"):
		rest = strings.TrimPrefix(t, "uint")
	case strings.HasPrefix(t, "int"):
		signed, rest = true, strings.TrimPrefix(t, "int")
	default:
		return false, 0, false
	}
	if rest == "" {
		return signed, 256, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 || n > 256 || n%8 != 0 {
		return false, 0, false
	}
	return signed, n, true
}

// ValidateValue checks the textual form of a value against its field type.
func ValidateValue(fieldType, value string) error {
	switch fieldType {
	case "string":
		return nil
	case "address":
		if !common.IsHexAddress(value) {
			return fmt.Errorf("%w: %q is not an address", ErrInvalidValue, value)
		}
		return nil
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, value)
		}
		return nil
	case "bytes32":
		if !bytes32Pattern.MatchString(value) {
			return fmt.Errorf("%w: %q is not bytes32", ErrInvalidValue, value)
		}
		return nil
	case "bytes":
		if !bytesPattern.MatchString(value) {
			return fmt.Errorf("%w: %q is not hex bytes", ErrInvalidValue, value)
		}
		return nil
	}

	signed, bits, ok := intType(fieldType)
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedSchema, fieldType)
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	if signed {
		limit.Rsh(limit, 1)
		lower := new(big.Int).Neg(limit)
		if n.Cmp(lower) < 0 || n.Cmp(limit) >= 0 {
			return fmt.Errorf("%w: %s out of range for %s", ErrInvalidValue, value, fieldType)
		}
		return nil
	}
	if n.Sign() < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("%w: %s out of range for %s", ErrInvalidValue, value, fieldType)
	}
	return nil
}

// Schema is a registered schema.
type Schema struct {
	UID        string  `json:"uid"`
	Definition string  `json:"schema"`
	Resolver   string  `json:"resolver"`
	Revocable  bool    `json:"revocable"`
	Creator    string  `json:"creator"`
	CreatedAt  int64   `json:"created_at"`
	Fields     []Field `json:"-"`
}

func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// ValidateData requires exactly the schema's fields with well typed values.
func (s Schema) ValidateData(data map[string]string) error {
	for _, f := range s.Fields {
		v, ok := data[f.Name]
		if !ok {
			return fmt.Errorf("%w: missing field %q", ErrInvalidValue, f.Name)
		}
		if err := ValidateValue(f.Type, v); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	if len(data) != len(s.Fields) {
		for name := range data {
			if !slices.Contains(s.FieldNames(), name) {
				return fmt.Errorf("%w: %q is not a schema field", ErrInvalidValue, name)
			}
		}
	}
	return nil
}
