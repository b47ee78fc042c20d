package attestation

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SchemaUID is keccak256(schema || resolver || revocable), packed.
func SchemaUID(definition string, resolver common.Address, revocable bool) common.Hash {
	flag := byte(0)
	if revocable {
		flag = 1
	}
	return crypto.Keccak256Hash([]byte(definition), resolver.Bytes(), []byte{flag})
}

// AttestationUID binds schema, parties, time and data. The nonce keeps two
// otherwise identical attestations apart.
func AttestationUID(schemaUID common.Hash, recipient, attester common.Address, createdAt int64, data []byte, nonce []byte) common.Hash {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(createdAt))
	return crypto.Keccak256Hash(schemaUID.Bytes(), recipient.Bytes(), attester.Bytes(), ts[:], data, nonce)
}
