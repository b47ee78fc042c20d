package proof

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"enact/pkg/utilities/timeutil"
)

// MaxProofAge is how old, in seconds, a proof timestamp may be.
const MaxProofAge int64 = 24 * 60 * 60

const (
	expectedProtocol = "groth16"
	expectedCurve    = "bn254"
)

var (
	errStructuralInvalid   = errors.New("proof bundle is missing fields")
	errStale               = errors.New("proof is too old")
	errBadProofShape       = errors.New("proof is not a groth16 bn254 proof")
	errBadHashFormat       = errors.New("hash is not a 32 byte hex string")
	errOutOfRangeAttribute = errors.New("revealed attribute out of range")
)

var (
	hashPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	validGenders   = []string{"1", "2", "3"}
)

type Clock func() timeutil.TimeUTC

type VerifierOption func(*Verifier)

func WithClock(clock Clock) VerifierOption {
	return func(v *Verifier) {
		v.now = clock
	}
}

// Verifier decides admission for an AnonAadhaar proof bundle. It is pure and
// safe for concurrent use; the only external input is the clock.
type Verifier struct {
	now Clock
}

func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{now: timeutil.NowUTC}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether the bundle is admitted. The reason for a rejection
// is never revealed.
func (v *Verifier) Verify(bundle *ProofBundle) bool {
	return v.check(bundle) == nil
}

// VerifyJSON parses and verifies; a document that cannot be parsed is rejected.
func (v *Verifier) VerifyJSON(data []byte) bool {
	bundle, err := ParseBundle(data)
	if err != nil {
		return false
	}
	return v.Verify(bundle)
}

func (v *Verifier) check(b *ProofBundle) error {
	if err := checkStructure(b); err != nil {
		return err
	}
	if err := v.checkFreshness(b.Timestamp); err != nil {
		return err
	}
	if err := checkProofShape(b.Groth16Proof); err != nil {
		return err
	}
	if !matchHash(b.SignalHash) {
		return fmt.Errorf("%w: signalHash", errBadHashFormat)
	}
	if !matchHash(b.PubkeyHash) {
		return fmt.Errorf("%w: pubkeyHash", errBadHashFormat)
	}
	return checkAttributes(b)
}

// checkStructure only asks that every key be present; a null or wrongly
// typed value is left to the later checks.
func checkStructure(b *ProofBundle) error {
	if b == nil {
		return errStructuralInvalid
	}
	for _, key := range bundleKeys {
		if !b.Has(key) {
			return fmt.Errorf("%w: %s", errStructuralInvalid, key)
		}
	}
	return nil
}

// checkFreshness admits timestamps in the future.
func (v *Verifier) checkFreshness(raw *string) error {
	if raw == nil {
		return fmt.Errorf("%w: timestamp is not a string or number", errStale)
	}
	ts, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparsable timestamp %q", errStale, *raw)
	}
	if v.now().Since(timeutil.TimeUTC{T: ts}) > MaxProofAge {
		return errStale
	}
	return nil
}

func checkProofShape(p *Groth16Proof) error {
	if p == nil || p.PiA == nil || p.PiB == nil || p.PiC == nil {
		return errBadProofShape
	}
	if p.Protocol != expectedProtocol || p.Curve != expectedCurve {
		return fmt.Errorf("%w: %s/%s", errBadProofShape, p.Protocol, p.Curve)
	}
	return nil
}

func matchHash(s *string) bool {
	return s != nil && hashPattern.MatchString(*s)
}

// checkAttributes compares ageAbove18 and gender as JSON strings only. The
// pincode may also be a JSON number; state is measured by its length.
func checkAttributes(b *ProofBundle) error {
	if age, ok := b.StringValue(KeyAgeAbove18); !ok || age != "1" {
		return fmt.Errorf("%w: ageAbove18", errOutOfRangeAttribute)
	}
	if gender, ok := b.StringValue(KeyGender); !ok || !slices.Contains(validGenders, gender) {
		return fmt.Errorf("%w: gender", errOutOfRangeAttribute)
	}
	if b.Pincode == nil || !pincodePattern.MatchString(*b.Pincode) {
		return fmt.Errorf("%w: pincode", errOutOfRangeAttribute)
	}
	if n, ok := b.Length(KeyState); !ok || n != 2 {
		return fmt.Errorf("%w: state", errOutOfRangeAttribute)
	}
	return nil
}
