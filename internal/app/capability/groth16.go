package capability

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"enact/pkg/logger"
	"enact/pkg/zkp"

	"github.com/consensys/gnark/backend/groth16"
)

const Groth16Prefix = "groth16-bn254/"

func Groth16ID(circuitID string) string { return Groth16Prefix + circuitID }

// Groth16 verifies a base64, borsh encoded proof package against the
// verifying key held for one circuit. The caller never supplies the key.
type Groth16 struct {
	circuitID string
	vk        groth16.VerifyingKey
	log       *logger.Logger
}

func NewGroth16(circuitID string, vk groth16.VerifyingKey, log *logger.Logger) *Groth16 {
	if log == nil {
		log = logger.Nop()
	}
	return &Groth16{circuitID: circuitID, vk: vk, log: log}
}

func LoadGroth16(circuitID string, vkBytes []byte, log *logger.Logger) (*Groth16, error) {
	vk, err := zkp.ReadVerifyingKey(vkBytes)
	if err != nil {
		return nil, fmt.Errorf("circuit %s: %w", circuitID, err)
	}
	return NewGroth16(circuitID, vk, log), nil
}

func (g *Groth16) ID() string { return Groth16ID(g.circuitID) }

func (g *Groth16) Invoke(_ context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes one proof package, got %d", ErrBadArguments, g.ID(), len(args))
	}

	raw, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		g.log.Debugf("%s: proof package is not base64: %v", g.ID(), err)
		return ResultFalse, nil
	}
	pkg, err := zkp.ReconstructZkpResult(raw)
	if err != nil {
		g.log.Debugf("%s: %v", g.ID(), err)
		return ResultFalse, nil
	}
	if err := zkp.Verify(pkg, g.vk); err != nil {
		g.log.Debugf("%s: verify failed: %v", g.ID(), err)
		return ResultFalse, nil
	}
	return ResultTrue, nil
}

// RegisterGroth16Keys registers one capability per circuit id, in id order.
func RegisterGroth16Keys(r *Registry, vks map[string][]byte, log *logger.Logger) error {
	ids := make([]string, 0, len(vks))
	for id := range vks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c, err := LoadGroth16(id, vks[id], log)
		if err != nil {
			return err
		}
		r.Register(c)
	}
	return nil
}

// EncodeProofPackage is the argument form the Groth16 capability accepts.
func EncodeProofPackage(result *zkp.ZkpResult) (string, error) {
	raw, err := result.SerializeBorsh()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
