package attestation

import "errors"

var (
	ErrMalformedSchema = errors.New("malformed schema")
	ErrInvalidValue    = errors.New("value does not match field type")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrRevoked         = errors.New("attestation revoked")
	ErrNotRevocable    = errors.New("schema is not revocable")
)
