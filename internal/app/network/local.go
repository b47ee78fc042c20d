package network

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"enact/internal/app/conditions"
	"enact/internal/app/params"
	"enact/pkg/logger"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrIntegrity           = errors.New("decrypted payload does not match its hash")
)

// LocalNetwork is an in-process encryption boundary. Each payload is sealed
// with a fresh key bound to the hash of its expression; the key is released
// only when the expression evaluates to true.
type LocalNetwork struct {
	keys      KeyStore
	evaluator *Evaluator
	random    io.Reader
	log       *logger.Logger
}

func NewLocalNetwork(keys KeyStore, evaluator *Evaluator, log *logger.Logger) *LocalNetwork {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalNetwork{keys: keys, evaluator: evaluator, random: rand.Reader, log: log}
}

// ConditionHash identifies an expression by the keccak256 of its JSON form.
func ConditionHash(expr conditions.Expression) (string, error) {
	doc, err := expr.Encode()
	if err != nil {
		return "", err
	}
	return crypto.Keccak256Hash(doc).Hex(), nil
}

func (n *LocalNetwork) Encrypt(ctx context.Context, plaintext []byte, expr conditions.Expression) (Ciphertext, error) {
	if expr.IsZero() {
		return Ciphertext{}, fmt.Errorf("%w: empty expression", conditions.ErrMalformedCondition)
	}
	conditionHash, err := ConditionHash(expr)
	if err != nil {
		return Ciphertext{}, err
	}

	var key [32]byte
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(n.random, key[:]); err != nil {
		return Ciphertext{}, err
	}
	if _, err := io.ReadFull(n.random, nonce[:]); err != nil {
		return Ciphertext{}, err
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &key)
	handle := crypto.Keccak256Hash(sealed).Hex()
	if err := n.keys.Put(ctx, StoredKey{Handle: handle, ConditionHash: conditionHash, Key: key}); err != nil {
		return Ciphertext{}, fmt.Errorf("%w: store key: %v", ErrNetworkFailure, err)
	}

	n.log.Debugf("Sealed payload %s under conditions %s", handle, conditionHash)
	return Ciphertext{
		Ciphertext:        base64.StdEncoding.EncodeToString(sealed),
		DataToEncryptHash: crypto.Keccak256Hash(plaintext).Hex(),
	}, nil
}

// Discard deletes the key of a ciphertext so it can never be opened.
func (n *LocalNetwork) Discard(ctx context.Context, ct Ciphertext) error {
	sealed, err := base64.StdEncoding.DecodeString(ct.Ciphertext)
	if err != nil || len(sealed) < nonceSize {
		return ErrMalformedCiphertext
	}
	handle := crypto.Keccak256Hash(sealed).Hex()
	if err := n.keys.Delete(ctx, handle); err != nil {
		return fmt.Errorf("%w: delete key: %v", ErrNetworkFailure, err)
	}
	n.log.Debugf("Discarded key for %s", handle)
	return nil
}

func (n *LocalNetwork) Decrypt(ctx context.Context, ct Ciphertext, expr conditions.Expression, resources []string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ct.Ciphertext)
	if err != nil || len(sealed) < nonceSize {
		return nil, ErrMalformedCiphertext
	}

	handle := crypto.Keccak256Hash(sealed).Hex()
	stored, err := n.keys.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	conditionHash, err := ConditionHash(expr)
	if err != nil {
		return nil, err
	}
	if conditionHash != stored.ConditionHash {
		return nil, ErrConditionMismatch
	}

	sideChannel, err := params.DecodeResources(resources)
	if err != nil {
		return nil, err
	}
	ok, err := n.evaluator.Evaluate(ctx, expr, sideChannel)
	if err != nil {
		return nil, err
	}
	if !ok {
		n.log.Infof("Access to %s denied", handle)
		return nil, ErrConditionsUnsatisfied
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, opened := secretbox.Open(nil, sealed[nonceSize:], &nonce, &stored.Key)
	if !opened {
		return nil, ErrMalformedCiphertext
	}
	if crypto.Keccak256Hash(plaintext).Hex() != ct.DataToEncryptHash {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}
