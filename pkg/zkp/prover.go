package zkp

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// CircuitKeys is a compiled schema with its groth16 key pair.
type CircuitKeys struct {
	Schema       *CircuitSchema
	circuit      *AttributeCircuit
	ccs          constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// Setup compiles the schema and runs a groth16 setup. The setup is local and
// untrusted, suitable for development networks and tests.
func Setup(schema *CircuitSchema) (*CircuitKeys, error) {
	circuit, err := NewAttributeCircuit(schema)
	if err != nil {
		return nil, err
	}

	ccs, err := frontend.Compile(ElipticalCurveID.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit %s: %w", schema.CircuitID, err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("setup circuit %s: %w", schema.CircuitID, err)
	}

	return &CircuitKeys{
		Schema:       schema,
		circuit:      circuit,
		ccs:          ccs,
		ProvingKey:   pk,
		VerifyingKey: vk,
	}, nil
}

// Prove produces a proof package for the given attribute values. Values that
// violate the schema fail here rather than producing an invalid proof.
func (ck *CircuitKeys) Prove(values map[string]int64) (*ZkpResult, error) {
	assignment, err := ck.circuit.Assign(values)
	if err != nil {
		return nil, err
	}

	fullWitness, err := frontend.NewWitness(assignment, ElipticalCurveID.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}

	proof, err := groth16.Prove(ck.ccs, ck.ProvingKey, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", ck.Schema.CircuitID, err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, err
	}

	return &ZkpResult{
		Proof:         proof,
		PublicWitness: publicWitness,
	}, nil
}
