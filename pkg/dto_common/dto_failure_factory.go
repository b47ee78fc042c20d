package dtocommon

import (
	reasoncodes "enact/pkg/reason_codes"
	"enact/pkg/utilities"
)

type FailureDtoFactory interface {
	CreateErrorDto(error, reasoncodes.ReasonCode) utilities.Serializable
	CreateInfoDto(reasoncodes.ReasonCode) utilities.Serializable
}

type anchorFailureDtoFactory struct {
	EventId     string
	RequestBody []byte
}

func NewAnchorFailureFactory(eventId string, requestBody []byte) FailureDtoFactory {
	return anchorFailureDtoFactory{
		EventId:     eventId,
		RequestBody: requestBody,
	}
}

func (f anchorFailureDtoFactory) CreateErrorDto(err error, reasonCode reasoncodes.ReasonCode) utilities.Serializable {
	return AnchorFailureDto{
		EventId:     f.EventId,
		RequestBody: f.RequestBody,
		Error:       err.Error(),
		ReasonCode:  reasonCode,
	}
}

func (f anchorFailureDtoFactory) CreateInfoDto(reasonCode reasoncodes.ReasonCode) utilities.Serializable {
	return AnchorFailureDto{
		EventId:     f.EventId,
		RequestBody: f.RequestBody,
		ReasonCode:  reasonCode,
	}
}

type verificationFailureDtoFactory struct {
	RequestId string
}

func NewVerificationFailureFactory(requestId string) FailureDtoFactory {
	return verificationFailureDtoFactory{RequestId: requestId}
}

func (f verificationFailureDtoFactory) CreateErrorDto(err error, reasonCode reasoncodes.ReasonCode) utilities.Serializable {
	return ProofVerdictDto{
		RequestId:  f.RequestId,
		IsValid:    false,
		Error:      err.Error(),
		ReasonCode: reasonCode,
	}
}

func (f verificationFailureDtoFactory) CreateInfoDto(reasonCode reasoncodes.ReasonCode) utilities.Serializable {
	return ProofVerdictDto{
		RequestId:  f.RequestId,
		IsValid:    false,
		ReasonCode: reasonCode,
	}
}
