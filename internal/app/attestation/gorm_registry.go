package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"enact/internal/app/model"
	"enact/internal/app/outbox"
	"enact/internal/app/wallet"
	dtocommon "enact/pkg/dto_common"
	"enact/pkg/logger"
	"enact/pkg/utilities/timeutil"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegistryOption func(*GormRegistry)

func WithClock(clock func() timeutil.TimeUTC) RegistryOption {
	return func(r *GormRegistry) { r.now = clock }
}

func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *GormRegistry) { r.log = l }
}

// GormRegistry is a registry backed by a relational store. Every attestation
// write is signed by the wallet and recorded in the outbox in the same transaction.
type GormRegistry struct {
	db     *gorm.DB
	wallet *wallet.Wallet
	now    func() timeutil.TimeUTC
	log    *logger.Logger
}

func NewGormRegistry(db *gorm.DB, w *wallet.Wallet, opts ...RegistryOption) *GormRegistry {
	r := &GormRegistry{db: db, wallet: w, now: timeutil.NowUTC, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GormRegistry) CreateSchema(ctx context.Context, req SchemaRequest) (Schema, error) {
	fields, err := ParseSchema(req.Definition)
	if err != nil {
		return Schema{}, err
	}

	resolver := common.Address{}
	if req.Resolver != "" {
		if !common.IsHexAddress(req.Resolver) {
			return Schema{}, fmt.Errorf("%w: invalid resolver %q", ErrMalformedSchema, req.Resolver)
		}
		resolver = common.HexToAddress(req.Resolver)
	}

	definition := CanonicalDefinition(fields)
	uid := SchemaUID(definition, resolver, req.Revocable).Hex()

	var existing int64
	if err := r.db.WithContext(ctx).Model(&model.Schema{}).Where("schema_uid = ?", uid).Count(&existing).Error; err != nil {
		return Schema{}, err
	}
	if existing > 0 {
		return Schema{}, fmt.Errorf("schema %s: %w", uid, ErrAlreadyExists)
	}

	record := model.Schema{
		SchemaUid:  uid,
		Definition: definition,
		Resolver:   resolver.Hex(),
		Revocable:  req.Revocable,
		Creator:    r.wallet.Address().Hex(),
		CreatedAt:  r.now().T,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Schema{}, fmt.Errorf("store schema: %w", err)
	}

	r.log.Infof("Registered schema %s", uid)
	return schemaFromRecord(record, fields), nil
}

func (r *GormRegistry) GetSchema(ctx context.Context, uid string) (Schema, error) {
	var record model.Schema
	err := r.db.WithContext(ctx).First(&record, "schema_uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Schema{}, fmt.Errorf("schema %s: %w", uid, ErrNotFound)
	}
	if err != nil {
		return Schema{}, err
	}

	fields, err := ParseSchema(record.Definition)
	if err != nil {
		return Schema{}, err
	}
	return schemaFromRecord(record, fields), nil
}

func (r *GormRegistry) CreateAttestation(ctx context.Context, req AttestationRequest) (Attestation, error) {
	schema, err := r.GetSchema(ctx, req.SchemaUID)
	if err != nil {
		return Attestation{}, err
	}

	recipient := common.Address{}
	if req.Recipient != "" {
		if !common.IsHexAddress(req.Recipient) {
			return Attestation{}, fmt.Errorf("%w: recipient %q is not an address", ErrInvalidValue, req.Recipient)
		}
		recipient = common.HexToAddress(req.Recipient)
	}

	var data []byte
	gated := req.Encrypted != nil
	if gated {
		data, err = json.Marshal(req.Encrypted)
	} else {
		if err := schema.ValidateData(req.Data); err != nil {
			return Attestation{}, err
		}
		data, err = json.Marshal(req.Data)
	}
	if err != nil {
		return Attestation{}, fmt.Errorf("encode attestation data: %w", err)
	}

	nonce, err := uuid.NewRandom()
	if err != nil {
		return Attestation{}, err
	}
	createdAt := r.now().T
	uid := AttestationUID(common.HexToHash(schema.UID), recipient, r.wallet.Address(), createdAt, data, nonce[:])
	signature, err := r.wallet.Sign(uid)
	if err != nil {
		return Attestation{}, fmt.Errorf("sign attestation: %w", err)
	}

	record := model.Attestation{
		AttestationUid: uid.Hex(),
		SchemaUid:      schema.UID,
		Attester:       r.wallet.Address().Hex(),
		Recipient:      recipient.Hex(),
		Gated:          gated,
		Data:           string(data),
		Signature:      hexutil.Encode(signature),
		CreatedAt:      createdAt,
	}

	event := dtocommon.AttestationEventDto{
		EventId:        uuid.NewString(),
		EventType:      dtocommon.AttestationCreated,
		AttestationUid: record.AttestationUid,
		SchemaUid:      record.SchemaUid,
		Attester:       record.Attester,
		Gated:          gated,
		Digest:         crypto.Keccak256Hash(data).Hex(),
		Timestamp:      createdAt,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return outbox.InsertEvent(tx, event)
	})
	if err != nil {
		return Attestation{}, fmt.Errorf("store attestation: %w", err)
	}

	r.log.Infof("Created attestation %s for schema %s (gated: %t)", record.AttestationUid, schema.UID, gated)
	return attestationFromRecord(record), nil
}

func (r *GormRegistry) GetAttestation(ctx context.Context, uid string) (Attestation, error) {
	record, err := r.findAttestation(r.db.WithContext(ctx), uid)
	if err != nil {
		return Attestation{}, err
	}
	return attestationFromRecord(record), nil
}

func (r *GormRegistry) RevokeAttestation(ctx context.Context, uid, reason string) (Revocation, error) {
	var revocation Revocation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := r.findAttestation(tx, uid)
		if err != nil {
			return err
		}
		if record.Revoked {
			return fmt.Errorf("attestation %s: %w", uid, ErrRevoked)
		}

		var schema model.Schema
		if err := tx.First(&schema, "schema_uid = ?", record.SchemaUid).Error; err != nil {
			return fmt.Errorf("schema of attestation %s: %w", uid, err)
		}
		if !schema.Revocable {
			return fmt.Errorf("attestation %s: %w", uid, ErrNotRevocable)
		}

		revokedAt := r.now().T
		err = tx.Model(&model.Attestation{}).
			Where("attestation_uid = ?", uid).
			Updates(map[string]interface{}{
				"revoked":           true,
				"revocation_reason": reason,
				"revoked_at":        revokedAt,
			}).Error
		if err != nil {
			return err
		}

		revocation = Revocation{UID: uid, Reason: reason, RevokedAt: revokedAt}
		return outbox.InsertEvent(tx, dtocommon.AttestationEventDto{
			EventId:        uuid.NewString(),
			EventType:      dtocommon.AttestationRevoked,
			AttestationUid: uid,
			SchemaUid:      record.SchemaUid,
			Attester:       record.Attester,
			Gated:          record.Gated,
			Digest:         crypto.Keccak256Hash([]byte(record.Data)).Hex(),
			Reason:         reason,
			Timestamp:      revokedAt,
		})
	})
	if err != nil {
		return Revocation{}, err
	}

	r.log.Infof("Revoked attestation %s", uid)
	return revocation, nil
}

func (r *GormRegistry) findAttestation(db *gorm.DB, uid string) (model.Attestation, error) {
	var record model.Attestation
	err := db.First(&record, "attestation_uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Attestation{}, fmt.Errorf("attestation %s: %w", uid, ErrNotFound)
	}
	return record, err
}

func schemaFromRecord(record model.Schema, fields []Field) Schema {
	return Schema{
		UID:        record.SchemaUid,
		Definition: record.Definition,
		Resolver:   record.Resolver,
		Revocable:  record.Revocable,
		Creator:    record.Creator,
		CreatedAt:  record.CreatedAt,
		Fields:     fields,
	}
}

func attestationFromRecord(record model.Attestation) Attestation {
	return Attestation{
		UID:              record.AttestationUid,
		SchemaUID:        record.SchemaUid,
		Attester:         record.Attester,
		Recipient:        record.Recipient,
		Gated:            record.Gated,
		Data:             json.RawMessage(record.Data),
		Signature:        record.Signature,
		Revoked:          record.Revoked,
		RevocationReason: record.RevocationReason,
		RevokedAt:        record.RevokedAt,
		CreatedAt:        record.CreatedAt,
	}
}

// VerifyAttestationSignature checks the attester's signature over the UID.
func VerifyAttestationSignature(a Attestation) error {
	sig, err := hexutil.Decode(a.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", wallet.ErrBadSignature, err)
	}
	return wallet.VerifySignature(common.HexToAddress(a.Attester), common.HexToHash(a.UID), sig)
}
