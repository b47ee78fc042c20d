package gating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"enact/internal/app/attestation"
	"enact/internal/app/conditions"
	"enact/internal/app/network"
	"enact/internal/app/params"
	"enact/internal/app/proof"
	"enact/pkg/logger"
)

var ErrProofRequired = errors.New("conditions need a proof bundle")

// ProofSource is asked for a bundle only when the conditions reference
// side-channel parameters.
type ProofSource interface {
	ProofBundle(ctx context.Context) (*proof.ProofBundle, error)
}

type ProofSourceFunc func(ctx context.Context) (*proof.ProofBundle, error)

func (f ProofSourceFunc) ProofBundle(ctx context.Context) (*proof.ProofBundle, error) {
	return f(ctx)
}

// StaticProof always returns the same bundle.
func StaticProof(b *proof.ProofBundle) ProofSource {
	return ProofSourceFunc(func(context.Context) (*proof.ProofBundle, error) { return b, nil })
}

type CreateRequest struct {
	SchemaUID  string
	Recipient  string
	Data       map[string]string
	Conditions conditions.Expression
}

type Resolved struct {
	Attestation attestation.Attestation `json:"attestation"`
	Data        map[string]string       `json:"data"`
}

// Orchestrator ties the registry to the encryption network. It never
// decrypts locally: plaintext of a gated attestation only comes back from
// the network.
type Orchestrator struct {
	registry attestation.Registry
	network  network.EncryptionNetwork
	log      *logger.Logger
}

func New(registry attestation.Registry, net network.EncryptionNetwork, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{registry: registry, network: net, log: log}
}

// Create seals data under the expression and registers the ciphertext handle.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (attestation.Attestation, error) {
	if req.Conditions.IsZero() {
		return attestation.Attestation{}, fmt.Errorf("%w: gated attestation without conditions", conditions.ErrMalformedCondition)
	}
	schema, err := o.registry.GetSchema(ctx, req.SchemaUID)
	if err != nil {
		return attestation.Attestation{}, err
	}
	if err := schema.ValidateData(req.Data); err != nil {
		return attestation.Attestation{}, err
	}

	plaintext, err := json.Marshal(req.Data)
	if err != nil {
		return attestation.Attestation{}, err
	}
	expression, err := req.Conditions.Encode()
	if err != nil {
		return attestation.Attestation{}, err
	}

	ct, err := o.network.Encrypt(ctx, plaintext, req.Conditions)
	if err != nil {
		return attestation.Attestation{}, err
	}

	created, err := o.registry.CreateAttestation(ctx, attestation.AttestationRequest{
		SchemaUID: req.SchemaUID,
		Recipient: req.Recipient,
		Encrypted: &attestation.EncryptedPayload{
			Ciphertext:        ct.Ciphertext,
			DataToEncryptHash: ct.DataToEncryptHash,
			Conditions:        string(expression),
		},
	})
	if err != nil {
		o.discard(ct)
		return attestation.Attestation{}, err
	}

	o.log.Infof("Created gated attestation %s", created.UID)
	return created, nil
}

// discard drops the network's key for a ciphertext the registry refused.
// It runs detached from the request context so a cancelled create still cleans up.
func (o *Orchestrator) discard(ct network.Ciphertext) {
	d, ok := o.network.(network.Discarder)
	if !ok {
		return
	}
	if err := d.Discard(context.Background(), ct); err != nil {
		o.log.Warnf("Could not discard key of unregistered ciphertext: %v", err)
	}
}

// Fetch returns the stored record without decrypting it.
func (o *Orchestrator) Fetch(ctx context.Context, uid string) (attestation.Attestation, error) {
	return o.registry.GetAttestation(ctx, uid)
}

// Resolve returns the attestation with its plaintext fields. For a gated
// attestation the proof source is consulted only if the stored conditions
// reference side-channel parameters.
func (o *Orchestrator) Resolve(ctx context.Context, uid string, proofs ProofSource) (Resolved, error) {
	a, err := o.registry.GetAttestation(ctx, uid)
	if err != nil {
		return Resolved{}, err
	}
	if a.Revoked {
		return Resolved{}, fmt.Errorf("attestation %s: %w", uid, attestation.ErrRevoked)
	}

	if !a.Gated {
		fields, err := a.Fields()
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Attestation: a, Data: fields}, nil
	}

	payload, err := a.EncryptedPayload()
	if err != nil {
		return Resolved{}, err
	}
	expr, err := conditions.ParseExpression([]byte(payload.Conditions))
	if err != nil {
		return Resolved{}, err
	}

	resources, err := o.resources(ctx, expr, proofs)
	if err != nil {
		return Resolved{}, err
	}

	plaintext, err := o.network.Decrypt(ctx, network.Ciphertext{
		Ciphertext:        payload.Ciphertext,
		DataToEncryptHash: payload.DataToEncryptHash,
	}, expr, resources)
	if err != nil {
		return Resolved{}, err
	}

	var fields map[string]string
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return Resolved{}, fmt.Errorf("decode decrypted attestation: %w", err)
	}
	o.log.Infof("Resolved gated attestation %s", uid)
	return Resolved{Attestation: a, Data: fields}, nil
}

func (o *Orchestrator) resources(ctx context.Context, expr conditions.Expression, proofs ProofSource) ([]string, error) {
	if len(expr.SideChannelNames()) == 0 {
		return nil, nil
	}
	if proofs == nil {
		return nil, ErrProofRequired
	}
	bundle, err := proofs.ProofBundle(ctx)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, ErrProofRequired
	}

	encoded, err := params.EncodeFor(expr, bundle)
	if err != nil {
		return nil, err
	}
	return encoded.Resources(), nil
}

func (o *Orchestrator) Revoke(ctx context.Context, uid, reason string) (attestation.Revocation, error) {
	return o.registry.RevokeAttestation(ctx, uid, reason)
}
