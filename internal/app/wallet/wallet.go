package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const PrivateKeyEnv = "PRIVATE_KEY"

var ErrBadSignature = errors.New("signature does not match signer")

// Wallet is the attester identity. Only the hex key ever leaves the process
// boundary, through the environment.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func FromHex(hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Generate creates a throwaway wallet for development and tests.
func Generate() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (w *Wallet) Address() common.Address { return w.address }

// Sign signs a 32 byte digest; the result is the 65 byte [R || S || V] form.
func (w *Wallet) Sign(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest.Bytes(), w.key)
}

func VerifySignature(signer common.Address, digest common.Hash, signature []byte) error {
	pub, err := crypto.SigToPub(digest.Bytes(), signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != signer {
		return ErrBadSignature
	}
	return nil
}
