package zkp

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/near/borsh-go"
)

const (
	ElipticalCurveID = ecc.BN254
)

var ErrInvalidProofPackage = errors.New("invalid proof package")

// ZkpResult is a groth16 proof with the public witness it was proven against.
// The verifying key is never part of the package; verifiers hold their own.
type ZkpResult struct {
	Proof         groth16.Proof
	PublicWitness witness.Witness
}

type intermediateSerializationStep struct {
	Proof         []byte `borsh:"proof"`
	PublicWitness []byte `borsh:"public_witness"`
}

func (zr *ZkpResult) SerializeBorsh() ([]byte, error) {
	var proofBuf bytes.Buffer
	if _, err := zr.Proof.WriteTo(&proofBuf); err != nil {
		return nil, fmt.Errorf("write proof: %w", err)
	}

	var witnessBuf bytes.Buffer
	if _, err := zr.PublicWitness.WriteTo(&witnessBuf); err != nil {
		return nil, fmt.Errorf("write public witness: %w", err)
	}

	return borsh.Serialize(intermediateSerializationStep{
		Proof:         proofBuf.Bytes(),
		PublicWitness: witnessBuf.Bytes(),
	})
}

func ReconstructZkpResult(serializedZkp []byte) (*ZkpResult, error) {
	var deserialized intermediateSerializationStep
	if err := borsh.Deserialize(&deserialized, serializedZkp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProofPackage, err)
	}

	proof := groth16.NewProof(ElipticalCurveID)
	if _, err := proof.ReadFrom(bytes.NewReader(deserialized.Proof)); err != nil {
		return nil, fmt.Errorf("%w: proof: %v", ErrInvalidProofPackage, err)
	}

	publicWitness, err := witness.New(ElipticalCurveID.ScalarField())
	if err != nil {
		return nil, err
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(deserialized.PublicWitness)); err != nil {
		return nil, fmt.Errorf("%w: public witness: %v", ErrInvalidProofPackage, err)
	}

	return &ZkpResult{
		Proof:         proof,
		PublicWitness: publicWitness,
	}, nil
}

func ReadVerifyingKey(data []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ElipticalCurveID)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return vk, nil
}

func VerifyingKeyBytes(vk groth16.VerifyingKey) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write verifying key: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks the package against a verifier-held key.
func Verify(result *ZkpResult, vk groth16.VerifyingKey) error {
	if result == nil || result.Proof == nil || result.PublicWitness == nil {
		return ErrInvalidProofPackage
	}
	return groth16.Verify(result.Proof, vk, result.PublicWitness)
}
