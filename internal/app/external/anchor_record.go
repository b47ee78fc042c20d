package external

import (
	"fmt"

	dtocommon "enact/pkg/dto_common"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/near/borsh-go"
)

const (
	RecordCreated uint8 = iota + 1
	RecordRevoked
)

// AnchorRecord is the borsh layout written into an anchor account.
type AnchorRecord struct {
	AttestationUid [32]byte
	SchemaUid      [32]byte
	Digest         [32]byte
	Kind           uint8
	Timestamp      int64
}

func NewAnchorRecord(event dtocommon.AttestationEventDto) (AnchorRecord, error) {
	var record AnchorRecord
	for name, field := range map[string]struct {
		value string
		dst   *[32]byte
	}{
		"attestation uid": {event.AttestationUid, &record.AttestationUid},
		"schema uid":      {event.SchemaUid, &record.SchemaUid},
		"digest":          {event.Digest, &record.Digest},
	} {
		raw, err := hexutil.Decode(field.value)
		if err != nil || len(raw) != 32 {
			return AnchorRecord{}, fmt.Errorf("%s %q is not a 32 byte hex value", name, field.value)
		}
		copy(field.dst[:], raw)
	}

	switch event.EventType {
	case dtocommon.AttestationCreated:
		record.Kind = RecordCreated
	case dtocommon.AttestationRevoked:
		record.Kind = RecordRevoked
	default:
		return AnchorRecord{}, fmt.Errorf("unknown event type %q", event.EventType)
	}
	record.Timestamp = event.Timestamp
	return record, nil
}

func (ar AnchorRecord) SerializeBorsh() ([]byte, error) {
	return borsh.Serialize(ar)
}

func DecodeAnchorRecord(data []byte) (AnchorRecord, error) {
	var record AnchorRecord
	if err := borsh.Deserialize(&record, data); err != nil {
		return AnchorRecord{}, fmt.Errorf("decode anchor record: %w", err)
	}
	return record, nil
}
