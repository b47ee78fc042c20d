package zkp

import (
	"testing"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adultSchemaJSON = `{
	"circuit_id": "adult-resident",
	"fields": [
		{"name": "birth_year", "required": true},
		{"name": "region_code", "required": true},
		{"name": "current_year", "public": true, "required": true}
	],
	"constraints": [
		{"type": "comparison", "fields": ["current_year", "birth_year"], "operator": "ge", "value": 18},
		{"type": "range_check", "fields": ["region_code"], "value": [100000, 999999]}
	]
}`

func setupAdultCircuit(t *testing.T) *CircuitKeys {
	t.Helper()
	schema, err := ParseSchema([]byte(adultSchemaJSON))
	require.NoError(t, err)
	keys, err := Setup(schema)
	require.NoError(t, err)
	return keys
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema([]byte(adultSchemaJSON))
	require.NoError(t, err)

	assert.Equal(t, "adult-resident", schema.CircuitID)
	assert.Equal(t, []string{"birth_year", "region_code"}, schema.SecretFieldOrder())
	assert.Equal(t, []string{"current_year"}, schema.PublicFieldOrder())
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"not json", `{`},
		{"no circuit id", `{"fields":[{"name":"a"}]}`},
		{"no fields", `{"circuit_id":"x","fields":[]}`},
		{"empty field name", `{"circuit_id":"x","fields":[{"name":""}]}`},
		{"duplicate field", `{"circuit_id":"x","fields":[{"name":"a"},{"name":"a"}]}`},
		{"unknown field in constraint", `{"circuit_id":"x","fields":[{"name":"a"}],"constraints":[{"type":"comparison","fields":["b"],"operator":"ge"}]}`},
		{"unknown operator", `{"circuit_id":"x","fields":[{"name":"a"}],"constraints":[{"type":"comparison","fields":["a"],"operator":"approx"}]}`},
		{"range without bounds", `{"circuit_id":"x","fields":[{"name":"a"}],"constraints":[{"type":"range_check","fields":["a"]}]}`},
		{"range bounds reversed", `{"circuit_id":"x","fields":[{"name":"a"}],"constraints":[{"type":"range_check","fields":["a"],"value":[9,1]}]}`},
		{"unknown constraint", `{"circuit_id":"x","fields":[{"name":"a"}],"constraints":[{"type":"age_magic","fields":["a"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema([]byte(tt.schema))
			assert.Error(t, err)
		})
	}
}

func TestProveAndVerify(t *testing.T) {
	keys := setupAdultCircuit(t)

	result, err := keys.Prove(map[string]int64{"birth_year": 1990, "region_code": 560001, "current_year": 2024})
	require.NoError(t, err)
	assert.NoError(t, Verify(result, keys.VerifyingKey))
}

func TestProveRejectsUnsatisfiedValues(t *testing.T) {
	keys := setupAdultCircuit(t)

	tests := []struct {
		name   string
		values map[string]int64
	}{
		{"under age", map[string]int64{"birth_year": 2010, "region_code": 560001, "current_year": 2024}},
		{"region out of range", map[string]int64{"birth_year": 1990, "region_code": 5600, "current_year": 2024}},
		{"missing field", map[string]int64{"birth_year": 1990, "current_year": 2024}},
		{"unknown field", map[string]int64{"birth_year": 1990, "region_code": 560001, "current_year": 2024, "extra": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := keys.Prove(tt.values)
			assert.Error(t, err)
		})
	}
}

func TestSerializationForZKP(t *testing.T) {
	keys := setupAdultCircuit(t)
	result, err := keys.Prove(map[string]int64{"birth_year": 2000, "region_code": 110001, "current_year": 2024})
	require.NoError(t, err)

	serialized, err := result.SerializeBorsh()
	require.NoError(t, err)

	reconstructed, err := ReconstructZkpResult(serialized)
	require.NoError(t, err)
	assert.NoError(t, groth16.Verify(reconstructed.Proof, keys.VerifyingKey, reconstructed.PublicWitness))

	vkBytes, err := VerifyingKeyBytes(keys.VerifyingKey)
	require.NoError(t, err)
	vk, err := ReadVerifyingKey(vkBytes)
	require.NoError(t, err)
	assert.NoError(t, Verify(reconstructed, vk))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	keys := setupAdultCircuit(t)
	other := setupAdultCircuit(t)

	result, err := keys.Prove(map[string]int64{"birth_year": 1990, "region_code": 560001, "current_year": 2024})
	require.NoError(t, err)

	assert.Error(t, Verify(result, other.VerifyingKey))
	assert.ErrorIs(t, Verify(nil, keys.VerifyingKey), ErrInvalidProofPackage)
}

func TestReconstructZkpResultRejectsGarbage(t *testing.T) {
	_, err := ReconstructZkpResult([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidProofPackage)
}
