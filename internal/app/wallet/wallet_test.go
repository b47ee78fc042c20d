package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well known development key (hardhat account #0)
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestFromHex(t *testing.T) {
	w, err := FromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address().Hex())

	_, err = FromHex("not-a-key")
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("attestation"))
	sig, err := w.Sign(digest)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	assert.NoError(t, VerifySignature(w.Address(), digest, sig))
	assert.ErrorIs(t, VerifySignature(other.Address(), digest, sig), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(w.Address(), digest, sig[:10]), ErrBadSignature)
}
