package reasoncodes

type ReasonCode string

const (
	ErrUnmarshal          ReasonCode = "UnmarshalError"
	ErrUnknownPredicate   ReasonCode = "UnknownPredicate"
	ErrMalformedSchema    ReasonCode = "MalformedSchema"
	ErrMalformedCondition ReasonCode = "MalformedCondition"
	ErrInvalidValue       ReasonCode = "InvalidValue"
	ErrAlreadyExists      ReasonCode = "AlreadyExists"
	ErrNotRevocable       ReasonCode = "NotRevocable"
	ErrUnsatisfied        ReasonCode = "ConditionsUnsatisfied"
	ErrProofRequired      ReasonCode = "ProofRequired"
	ErrProofRejected      ReasonCode = "ProofRejected"
	ErrNetworkFailure     ReasonCode = "NetworkFailure"
	ErrNotFound           ReasonCode = "NotFound"
	ErrRevoked            ReasonCode = "AttestationRevoked"
	ErrSolana             ReasonCode = "SolanaBlockchainError"
	ErrInternal           ReasonCode = "InternalError"
)
