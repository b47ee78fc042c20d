package capability

import (
	"context"
	"fmt"

	"enact/internal/app/conditions"
	"enact/internal/app/proof"
)

// AnonAadhaar runs the structural proof verifier over a JSON proof bundle
// passed as the single argument.
type AnonAadhaar struct {
	verifier *proof.Verifier
}

func NewAnonAadhaar(verifier *proof.Verifier) *AnonAadhaar {
	if verifier == nil {
		verifier = proof.NewVerifier()
	}
	return &AnonAadhaar{verifier: verifier}
}

func (a *AnonAadhaar) ID() string { return conditions.AnonAadhaarCapability }

// Invoke never fails on a bad bundle; a bundle that cannot be parsed is "false".
func (a *AnonAadhaar) Invoke(_ context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes one proof argument, got %d", ErrBadArguments, a.ID(), len(args))
	}
	return boolResult(a.verifier.VerifyJSON([]byte(args[0]))), nil
}
