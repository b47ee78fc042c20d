package params

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"enact/internal/app/conditions"
	"enact/internal/app/proof"
	"enact/pkg/utilities"
)

const (
	NullifierSeed = "nullifierSeed"
	Nullifier     = "nullifier"
	Timestamp     = "timestamp"
	RevealArray   = "revealArray"
	Groth16Proof  = "groth16Proof"

	// ResourcePrefix starts every side-channel resource string.
	ResourcePrefix = "litParam:"
)

var (
	ErrIncompleteBundle     = errors.New("proof bundle cannot be encoded")
	ErrUnsupportedParameter = errors.New("no encoding for side-channel parameter")
	ErrMalformedResource    = errors.New("malformed side-channel resource")
)

var encoding = base64.RawURLEncoding

// Parameter is a named side-channel value, already encoded.
type Parameter struct {
	Name  string
	Value string
}

func NewParameter(name, plaintext string) Parameter {
	return Parameter{Name: name, Value: encoding.EncodeToString([]byte(plaintext))}
}

func (p Parameter) Resource() string {
	return ResourcePrefix + p.Name + ":" + p.Value
}

func (p Parameter) Decode() (string, error) {
	return DecodeValue(p.Value)
}

// Parameters keeps the order in which the values were produced.
type Parameters []Parameter

func (ps Parameters) Resources() []string {
	return utilities.Map(ps, Parameter.Resource)
}

func (ps Parameters) Names() []string {
	return utilities.Map(ps, func(p Parameter) string { return p.Name })
}

func (ps Parameters) Lookup(name string) (Parameter, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Encode derives the five AnonAadhaar verifier parameters from a bundle. The
// output is a pure function of the bundle.
func Encode(b *proof.ProofBundle) (Parameters, error) {
	values, err := plaintexts(b)
	if err != nil {
		return nil, err
	}
	names := []string{NullifierSeed, Nullifier, Timestamp, RevealArray, Groth16Proof}
	out := make(Parameters, len(names))
	for i, name := range names {
		out[i] = NewParameter(name, values[name])
	}
	return out, nil
}

// EncodeFor returns only the parameters the expression references, in the
// expression's order of first reference. The "proof" parameter carries the
// whole bundle as JSON.
func EncodeFor(expr conditions.Expression, b *proof.ProofBundle) (Parameters, error) {
	names := expr.SideChannelNames()
	if len(names) == 0 {
		return Parameters{}, nil
	}
	if b == nil {
		return nil, fmt.Errorf("%w: no bundle", ErrIncompleteBundle)
	}

	var values map[string]string
	out := make(Parameters, 0, len(names))
	for _, name := range names {
		if name == conditions.ProofParam {
			doc, err := b.Serialize()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIncompleteBundle, err)
			}
			out = append(out, NewParameter(name, string(doc)))
			continue
		}

		if values == nil {
			var err error
			if values, err = plaintexts(b); err != nil {
				return nil, err
			}
		}
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedParameter, name)
		}
		out = append(out, NewParameter(name, v))
	}
	return out, nil
}

func plaintexts(b *proof.ProofBundle) (map[string]string, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no bundle", ErrIncompleteBundle)
	}
	for name, field := range map[string]*string{
		NullifierSeed: b.NullifierSeed,
		Nullifier:     b.Nullifier,
		Timestamp:     b.Timestamp,
		proof.KeyAgeAbove18: b.AgeAbove18,
		proof.KeyGender:     b.Gender,
		proof.KeyPincode:    b.Pincode,
		proof.KeyState:      b.State,
	} {
		if field == nil {
			return nil, fmt.Errorf("%w: %s missing", ErrIncompleteBundle, name)
		}
	}

	g := b.Groth16Proof
	if g == nil || len(g.PiA) < 2 || len(g.PiB) < 2 || len(g.PiB[0]) < 2 || len(g.PiB[1]) < 2 || len(g.PiC) < 2 {
		return nil, fmt.Errorf("%w: groth16 proof is incomplete", ErrIncompleteBundle)
	}

	return map[string]string{
		NullifierSeed: *b.NullifierSeed,
		Nullifier:     *b.Nullifier,
		Timestamp:     *b.Timestamp,
		RevealArray:   arrayLiteral(*b.AgeAbove18, *b.Gender, *b.Pincode, *b.State),
		// b pairs are swapped: the on-chain verifier takes G2 coordinates as (c1, c0)
		Groth16Proof: arrayLiteral(
			g.PiA[0], g.PiA[1],
			g.PiB[0][1], g.PiB[0][0],
			g.PiB[1][1], g.PiB[1][0],
			g.PiC[0], g.PiC[1],
		),
	}, nil
}

func arrayLiteral(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}

func DecodeValue(value string) (string, error) {
	raw, err := encoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}
	return string(raw), nil
}

// ParseResource splits "litParam:<name>:<value>".
func ParseResource(resource string) (Parameter, error) {
	rest, ok := strings.CutPrefix(resource, ResourcePrefix)
	if !ok {
		return Parameter{}, fmt.Errorf("%w: %q lacks %s prefix", ErrMalformedResource, resource, ResourcePrefix)
	}
	name, value, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return Parameter{}, fmt.Errorf("%w: %q", ErrMalformedResource, resource)
	}
	return Parameter{Name: name, Value: value}, nil
}

// DecodeResources turns resource strings into plaintext values by name. A
// later resource with the same name wins.
func DecodeResources(resources []string) (map[string]string, error) {
	out := make(map[string]string, len(resources))
	for _, r := range resources {
		p, err := ParseResource(r)
		if err != nil {
			return nil, err
		}
		v, err := p.Decode()
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}
