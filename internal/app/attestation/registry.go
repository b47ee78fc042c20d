package attestation

import (
	"context"
	"encoding/json"
	"fmt"
)

// EncryptedPayload is what a gated attestation stores in place of its data.
// Conditions is the JSON condition expression the ciphertext is bound to.
type EncryptedPayload struct {
	Ciphertext        string `json:"ciphertext"`
	DataToEncryptHash string `json:"dataToEncryptHash"`
	Conditions        string `json:"conditions"`
}

type SchemaRequest struct {
	Definition string
	Resolver   string
	Revocable  bool
}

// AttestationRequest carries either plaintext Data or an Encrypted payload.
type AttestationRequest struct {
	SchemaUID string
	Recipient string
	Data      map[string]string
	Encrypted *EncryptedPayload
}

type Attestation struct {
	UID              string          `json:"uid"`
	SchemaUID        string          `json:"schema_uid"`
	Attester         string          `json:"attester"`
	Recipient        string          `json:"recipient"`
	Gated            bool            `json:"gated"`
	Data             json.RawMessage `json:"data"`
	Signature        string          `json:"signature"`
	Revoked          bool            `json:"revoked"`
	RevocationReason string          `json:"revocation_reason,omitempty"`
	RevokedAt        int64           `json:"revoked_at,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

func (a Attestation) Fields() (map[string]string, error) {
	if a.Gated {
		return nil, fmt.Errorf("attestation %s is gated", a.UID)
	}
	var fields map[string]string
	if err := json.Unmarshal(a.Data, &fields); err != nil {
		return nil, fmt.Errorf("decode attestation data: %w", err)
	}
	return fields, nil
}

func (a Attestation) EncryptedPayload() (EncryptedPayload, error) {
	if !a.Gated {
		return EncryptedPayload{}, fmt.Errorf("attestation %s is not gated", a.UID)
	}
	var payload EncryptedPayload
	if err := json.Unmarshal(a.Data, &payload); err != nil {
		return EncryptedPayload{}, fmt.Errorf("decode encrypted payload: %w", err)
	}
	return payload, nil
}

type Revocation struct {
	UID       string `json:"uid"`
	Reason    string `json:"reason"`
	RevokedAt int64  `json:"revoked_at"`
}

type Registry interface {
	CreateSchema(ctx context.Context, req SchemaRequest) (Schema, error)
	GetSchema(ctx context.Context, uid string) (Schema, error)
	CreateAttestation(ctx context.Context, req AttestationRequest) (Attestation, error)
	GetAttestation(ctx context.Context, uid string) (Attestation, error)
	RevokeAttestation(ctx context.Context, uid, reason string) (Revocation, error)
}
