package dtocommon

import (
	"encoding/json"

	reasoncodes "enact/pkg/reason_codes"
	"enact/pkg/utilities"
)

// ProofVerificationRequestDto asks the verifier service to judge a proof
// bundle. Capability defaults to the AnonAadhaar verifier when empty.
type ProofVerificationRequestDto struct {
	RequestId  string          `json:"request_id"`
	Capability string          `json:"capability,omitempty"`
	Proof      json.RawMessage `json:"proof"`
}

func (pr ProofVerificationRequestDto) Serialize() ([]byte, error) {
	return utilities.Serialize[ProofVerificationRequestDto](pr)
}

// ProofVerdictDto mirrors the capability response shape, keyed by request.
type ProofVerdictDto struct {
	RequestId  string                 `json:"request_id"`
	IsValid    bool                   `json:"isValid"`
	Error      string                 `json:"error,omitempty"`
	ReasonCode reasoncodes.ReasonCode `json:"reason_code,omitempty"`
}

func (pv ProofVerdictDto) Serialize() ([]byte, error) {
	return utilities.Serialize[ProofVerdictDto](pv)
}
