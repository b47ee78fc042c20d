package network

import (
	"context"
	"errors"

	"enact/internal/app/conditions"
)

var (
	// ErrNetworkFailure wraps any failure to reach the encryption network.
	ErrNetworkFailure        = errors.New("encryption network failure")
	ErrConditionsUnsatisfied = errors.New("access conditions not satisfied")
	ErrConditionMismatch     = errors.New("conditions differ from the ones the payload was sealed with")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	ErrUnsupportedPredicate  = errors.New("predicate cannot be evaluated")
	ErrNotComparable         = errors.New("values are not comparable")
	ErrUnknownChain          = errors.New("no reader for chain")
)

// Ciphertext is the opaque handle returned by encryption.
type Ciphertext struct {
	Ciphertext        string `json:"ciphertext"`
	DataToEncryptHash string `json:"dataToEncryptHash"`
}

// EncryptionNetwork is the threshold-encryption boundary. Decrypt returns
// plaintext only when the expression holds for the caller in ctx with the
// given "litParam:<name>:<value>" resources.
type EncryptionNetwork interface {
	Encrypt(ctx context.Context, plaintext []byte, expr conditions.Expression) (Ciphertext, error)
	Decrypt(ctx context.Context, ct Ciphertext, expr conditions.Expression, resources []string) ([]byte, error)
}

// Discarder is implemented by networks that hold per-ciphertext key material
// and can drop it for a ciphertext that was never registered.
type Discarder interface {
	Discard(ctx context.Context, ct Ciphertext) error
}
