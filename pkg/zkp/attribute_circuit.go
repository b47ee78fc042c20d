package zkp

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

var comparisonOperators = map[string]struct{}{
	"ge": {}, "gt": {}, "le": {}, "lt": {}, "eq": {}, "ne": {},
}

// AttributeCircuit enforces a CircuitSchema. The slices are sized from the
// schema, so a compiled circuit and its assignment must come from the same schema.
type AttributeCircuit struct {
	SecretValues []frontend.Variable `gnark:",secret"`
	PublicValues []frontend.Variable `gnark:",public"`

	schema      *CircuitSchema `gnark:"-"`
	secretIndex map[string]int `gnark:"-"`
	publicIndex map[string]int `gnark:"-"`
}

func NewAttributeCircuit(schema *CircuitSchema) (*AttributeCircuit, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	secretOrder := schema.SecretFieldOrder()
	publicOrder := schema.PublicFieldOrder()
	circuit := &AttributeCircuit{
		SecretValues: make([]frontend.Variable, len(secretOrder)),
		PublicValues: make([]frontend.Variable, len(publicOrder)),
		schema:       schema,
		secretIndex:  make(map[string]int, len(secretOrder)),
		publicIndex:  make(map[string]int, len(publicOrder)),
	}
	for i, name := range secretOrder {
		circuit.secretIndex[name] = i
	}
	for i, name := range publicOrder {
		circuit.publicIndex[name] = i
	}
	return circuit, nil
}

// Assign builds a witness assignment. Every field must be given a value.
func (ac *AttributeCircuit) Assign(values map[string]int64) (*AttributeCircuit, error) {
	assignment := &AttributeCircuit{
		SecretValues: make([]frontend.Variable, len(ac.SecretValues)),
		PublicValues: make([]frontend.Variable, len(ac.PublicValues)),
		schema:       ac.schema,
		secretIndex:  ac.secretIndex,
		publicIndex:  ac.publicIndex,
	}
	for name, value := range values {
		if idx, ok := ac.secretIndex[name]; ok {
			assignment.SecretValues[idx] = value
		} else if idx, ok := ac.publicIndex[name]; ok {
			assignment.PublicValues[idx] = value
		} else {
			return nil, fmt.Errorf("assignment references unknown field '%s'", name)
		}
	}
	for _, field := range ac.schema.Fields {
		if _, ok := values[field.Name]; !ok {
			return nil, fmt.Errorf("field '%s' missing from assignment", field.Name)
		}
	}
	return assignment, nil
}

func (ac *AttributeCircuit) Define(api frontend.API) error {
	for _, constraint := range ac.schema.Constraints {
		var err error
		switch constraint.Type {
		case ConstraintRange:
			err = ac.applyRange(api, constraint)
		case ConstraintComparison:
			err = ac.applyComparison(api, constraint)
		default:
			err = fmt.Errorf("unsupported constraint type '%s'", constraint.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ac *AttributeCircuit) applyRange(api frontend.API, constraint ConstraintDefinition) error {
	minBound, maxBound, err := constraint.Bounds()
	if err != nil {
		return err
	}
	value, err := ac.fieldVariable(constraint.Fields[0])
	if err != nil {
		return err
	}
	api.AssertIsLessOrEqual(minBound, value)
	api.AssertIsLessOrEqual(value, maxBound)
	return nil
}

func (ac *AttributeCircuit) applyComparison(api frontend.API, constraint ConstraintDefinition) error {
	left, err := ac.fieldVariable(constraint.Fields[0])
	if err != nil {
		return err
	}
	offset, err := constraint.Offset()
	if err != nil {
		return err
	}

	var right frontend.Variable = offset
	if len(constraint.Fields) > 1 {
		other, err := ac.fieldVariable(constraint.Fields[1])
		if err != nil {
			return err
		}
		right = api.Add(other, offset)
	}

	switch constraint.Operator {
	case "ge":
		api.AssertIsLessOrEqual(right, left)
	case "gt":
		api.AssertIsLessOrEqual(api.Add(right, 1), left)
	case "le":
		api.AssertIsLessOrEqual(left, right)
	case "lt":
		api.AssertIsLessOrEqual(api.Add(left, 1), right)
	case "eq":
		api.AssertIsEqual(left, right)
	case "ne":
		api.AssertIsDifferent(left, right)
	default:
		return fmt.Errorf("unsupported comparison operator '%s'", constraint.Operator)
	}
	return nil
}

func (ac *AttributeCircuit) fieldVariable(name string) (frontend.Variable, error) {
	if idx, ok := ac.secretIndex[name]; ok {
		return ac.SecretValues[idx], nil
	}
	if idx, ok := ac.publicIndex[name]; ok {
		return ac.PublicValues[idx], nil
	}
	return nil, fmt.Errorf("unknown circuit field '%s'", name)
}
