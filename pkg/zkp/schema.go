package zkp

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ConstraintType string

const (
	ConstraintRange      ConstraintType = "range_check"
	ConstraintComparison ConstraintType = "comparison"
)

// CircuitSchema declares integer attributes and the relations a proof must
// establish over them. Fields are secret unless marked public.
type CircuitSchema struct {
	CircuitID   string                 `json:"circuit_id"`
	Fields      []FieldDefinition      `json:"fields"`
	Constraints []ConstraintDefinition `json:"constraints"`

	fieldIndex map[string]FieldDefinition
}

type FieldDefinition struct {
	Name     string `json:"name"`
	Public   bool   `json:"public"`
	Required bool   `json:"required"`
}

// ConstraintDefinition is either a range check on one field with a [min, max]
// value, or a comparison "fields[0] op (fields[1] + value)" where the second
// field is optional.
type ConstraintDefinition struct {
	Type     ConstraintType  `json:"type"`
	Fields   []string        `json:"fields"`
	Operator string          `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func ParseSchema(data []byte) (*CircuitSchema, error) {
	var schema CircuitSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse circuit schema: %w", err)
	}
	if err := schema.prepare(); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (s *CircuitSchema) prepare() error {
	if s.CircuitID == "" {
		return errors.New("circuit schema must declare circuit_id")
	}
	if len(s.Fields) == 0 {
		return errors.New("circuit schema must declare at least one field")
	}

	s.fieldIndex = make(map[string]FieldDefinition, len(s.Fields))
	for _, field := range s.Fields {
		if field.Name == "" {
			return errors.New("circuit field name cannot be empty")
		}
		if _, exists := s.fieldIndex[field.Name]; exists {
			return fmt.Errorf("duplicate field '%s' in circuit schema", field.Name)
		}
		s.fieldIndex[field.Name] = field
	}

	for _, constraint := range s.Constraints {
		if err := s.checkConstraint(constraint); err != nil {
			return err
		}
	}
	return nil
}

func (s *CircuitSchema) checkConstraint(c ConstraintDefinition) error {
	for _, name := range c.Fields {
		if _, ok := s.fieldIndex[name]; !ok {
			return fmt.Errorf("constraint references unknown field '%s'", name)
		}
	}
	switch c.Type {
	case ConstraintRange:
		if len(c.Fields) != 1 {
			return errors.New("range constraint requires exactly one field")
		}
		if _, _, err := c.Bounds(); err != nil {
			return err
		}
	case ConstraintComparison:
		if len(c.Fields) == 0 || len(c.Fields) > 2 {
			return errors.New("comparison constraint takes one or two fields")
		}
		if _, ok := comparisonOperators[c.Operator]; !ok {
			return fmt.Errorf("unsupported comparison operator '%s'", c.Operator)
		}
		if _, err := c.Offset(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported constraint type '%s'", c.Type)
	}
	return nil
}

func (s *CircuitSchema) SecretFieldOrder() []string {
	return s.fieldOrder(false)
}

func (s *CircuitSchema) PublicFieldOrder() []string {
	return s.fieldOrder(true)
}

func (s *CircuitSchema) fieldOrder(public bool) []string {
	order := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Public == public {
			order = append(order, field.Name)
		}
	}
	return order
}

// Offset is the comparison constant; absent means zero.
func (c ConstraintDefinition) Offset() (int64, error) {
	if len(c.Value) == 0 {
		return 0, nil
	}
	var v int64
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return 0, fmt.Errorf("comparison value must be an integer: %s", string(c.Value))
	}
	return v, nil
}

func (c ConstraintDefinition) Bounds() (int64, int64, error) {
	var bounds []int64
	if err := json.Unmarshal(c.Value, &bounds); err != nil || len(bounds) != 2 {
		return 0, 0, fmt.Errorf("range constraint requires two integer bounds, got %s", string(c.Value))
	}
	if bounds[0] > bounds[1] {
		return 0, 0, fmt.Errorf("range constraint bounds out of order: %d > %d", bounds[0], bounds[1])
	}
	return bounds[0], bounds[1], nil
}
