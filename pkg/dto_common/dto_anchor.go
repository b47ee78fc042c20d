package dtocommon

import (
	reasoncodes "enact/pkg/reason_codes"
	"enact/pkg/utilities"
)

type AnchorResultDto struct {
	EventId        string `json:"event_id"`
	AttestationUid string `json:"attestation_uid"`
	Signature      string `json:"signature"`
	AccountId      string `json:"account_id"`
}

func (ar AnchorResultDto) Serialize() ([]byte, error) {
	return utilities.Serialize[AnchorResultDto](ar)
}

type AnchorFailureDto struct {
	EventId     string                 `json:"event_id"`
	RequestBody []byte                 `json:"request_body"`
	Error       string                 `json:"error,omitempty"`
	ReasonCode  reasoncodes.ReasonCode `json:"reason_code"`
}

func (af AnchorFailureDto) Serialize() ([]byte, error) {
	return utilities.Serialize[AnchorFailureDto](af)
}
