package dtocommon

import "enact/pkg/utilities"

type AttestationEventType string

const (
	AttestationCreated AttestationEventType = "attestation.created"
	AttestationRevoked AttestationEventType = "attestation.revoked"
)

// AttestationEventDto is published for every registry write. Digest is the
// keccak256 of the stored data, never the data itself.
type AttestationEventDto struct {
	EventId        string               `json:"event_id"`
	EventType      AttestationEventType `json:"event_type"`
	AttestationUid string               `json:"attestation_uid"`
	SchemaUid      string               `json:"schema_uid"`
	Attester       string               `json:"attester"`
	Gated          bool                 `json:"gated"`
	Digest         string               `json:"digest"`
	Reason         string               `json:"reason,omitempty"`
	Timestamp      int64                `json:"timestamp"`
}

func (ae AttestationEventDto) Serialize() ([]byte, error) {
	return utilities.Serialize[AttestationEventDto](ae)
}
