package model

// Attestation stores either the plaintext field values or, for gated
// attestations, the encrypted payload. Both are JSON documents.
type Attestation struct {
	Id               uint   `gorm:"primaryKey;autoIncrement"`
	AttestationUid   string `gorm:"uniqueIndex"`
	SchemaUid        string `gorm:"index"`
	Attester         string
	Recipient        string
	Gated            bool
	Data             string
	Signature        string
	Revoked          bool
	RevocationReason string
	RevokedAt        int64
	CreatedAt        int64
}
