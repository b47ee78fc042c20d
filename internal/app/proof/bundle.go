package proof

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
)

const (
	KeyGroth16Proof  = "groth16Proof"
	KeyPubkeyHash    = "pubkeyHash"
	KeyTimestamp     = "timestamp"
	KeyNullifierSeed = "nullifierSeed"
	KeyNullifier     = "nullifier"
	KeySignalHash    = "signalHash"
	KeyAgeAbove18    = "ageAbove18"
	KeyGender        = "gender"
	KeyPincode       = "pincode"
	KeyState         = "state"
)

var bundleKeys = []string{
	KeyGroth16Proof, KeyPubkeyHash, KeyTimestamp, KeyNullifierSeed, KeyNullifier,
	KeySignalHash, KeyAgeAbove18, KeyGender, KeyPincode, KeyState,
}

// Groth16Proof is the snarkjs style proof object. A nil slice means the field
// was absent or not a JSON array.
type Groth16Proof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

// ProofBundle is an AnonAadhaar proof with its revealed attributes. The typed
// fields hold the text of JSON strings and numbers; a nil field was absent or
// of another JSON kind.
//
// A parsed bundle also keeps every submitted token, which decides key presence
// and JSON kind and is what the bundle serializes back to. Bundles built in
// code have no tokens: their non-nil fields count as JSON strings. A parsed
// bundle is not meant to be mutated.
type ProofBundle struct {
	Groth16Proof  *Groth16Proof
	PubkeyHash    *string
	Timestamp     *string
	NullifierSeed *string
	Nullifier     *string
	SignalHash    *string
	AgeAbove18    *string
	Gender        *string
	Pincode       *string
	State         *string

	submitted map[string]json.RawMessage
}

// ParseBundle decodes a bundle leniently: only a non-object document is an
// error. Wrongly typed fields are left for the verifier to reject.
func ParseBundle(data []byte) (*ProofBundle, error) {
	if !isKind(data, '{') {
		return nil, fmt.Errorf("decode proof bundle: not a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode proof bundle: %w", err)
	}

	submitted := make(map[string]json.RawMessage, len(bundleKeys))
	for _, key := range bundleKeys {
		if token, ok := raw[key]; ok {
			submitted[key] = token
		}
	}

	return &ProofBundle{
		Groth16Proof:  parseGroth16(raw[KeyGroth16Proof]),
		PubkeyHash:    scalar(raw[KeyPubkeyHash]),
		Timestamp:     scalar(raw[KeyTimestamp]),
		NullifierSeed: scalar(raw[KeyNullifierSeed]),
		Nullifier:     scalar(raw[KeyNullifier]),
		SignalHash:    scalar(raw[KeySignalHash]),
		AgeAbove18:    scalar(raw[KeyAgeAbove18]),
		Gender:        scalar(raw[KeyGender]),
		Pincode:       scalar(raw[KeyPincode]),
		State:         scalar(raw[KeyState]),
		submitted:     submitted,
	}, nil
}

func (pb *ProofBundle) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBundle(data)
	if err != nil {
		return err
	}
	*pb = *parsed
	return nil
}

// MarshalJSON writes submitted tokens as they arrived, so JSON kinds survive
// a round trip.
func (pb ProofBundle) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(bundleKeys))
	for _, key := range bundleKeys {
		token, ok, err := pb.token(key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = token
		}
	}
	return json.Marshal(out)
}

func (pb ProofBundle) Serialize() ([]byte, error) {
	return json.Marshal(pb)
}

// Has reports whether key was part of the bundle, whatever its value.
func (pb *ProofBundle) Has(key string) bool {
	if pb.submitted != nil {
		_, ok := pb.submitted[key]
		return ok
	}
	if key == KeyGroth16Proof {
		return pb.Groth16Proof != nil
	}
	return pb.text(key) != nil
}

// StringValue returns the value of key only when it was submitted as a JSON string.
func (pb *ProofBundle) StringValue(key string) (string, bool) {
	s := pb.text(key)
	if s == nil {
		return "", false
	}
	if pb.submitted != nil && !isKind(pb.submitted[key], '"') {
		return "", false
	}
	return *s, true
}

// Length is the JavaScript length of the value of key: UTF-16 code units of a
// string or the element count of an array.
func (pb *ProofBundle) Length(key string) (int, bool) {
	if s, ok := pb.StringValue(key); ok {
		return len(utf16.Encode([]rune(s))), true
	}
	token := pb.submitted[key]
	if !isKind(token, '[') {
		return 0, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(token, &items); err != nil {
		return 0, false
	}
	return len(items), true
}

func (pb *ProofBundle) token(key string) (json.RawMessage, bool, error) {
	if pb.submitted != nil {
		token, ok := pb.submitted[key]
		return token, ok, nil
	}
	var value any
	if key == KeyGroth16Proof {
		if pb.Groth16Proof == nil {
			return nil, false, nil
		}
		value = pb.Groth16Proof
	} else {
		s := pb.text(key)
		if s == nil {
			return nil, false, nil
		}
		value = *s
	}
	token, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s: %w", key, err)
	}
	return token, true, nil
}

func (pb *ProofBundle) text(key string) *string {
	switch key {
	case KeyPubkeyHash:
		return pb.PubkeyHash
	case KeyTimestamp:
		return pb.Timestamp
	case KeyNullifierSeed:
		return pb.NullifierSeed
	case KeyNullifier:
		return pb.Nullifier
	case KeySignalHash:
		return pb.SignalHash
	case KeyAgeAbove18:
		return pb.AgeAbove18
	case KeyGender:
		return pb.Gender
	case KeyPincode:
		return pb.Pincode
	case KeyState:
		return pb.State
	default:
		return nil
	}
}

type rawGroth16Proof struct {
	PiA      json.RawMessage `json:"pi_a"`
	PiB      json.RawMessage `json:"pi_b"`
	PiC      json.RawMessage `json:"pi_c"`
	Protocol json.RawMessage `json:"protocol"`
	Curve    json.RawMessage `json:"curve"`
}

func parseGroth16(data json.RawMessage) *Groth16Proof {
	if !isKind(data, '{') {
		return nil
	}
	var raw rawGroth16Proof
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	proof := &Groth16Proof{
		PiA: scalarArray(raw.PiA),
		PiC: scalarArray(raw.PiC),
	}
	if isKind(raw.PiB, '[') {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw.PiB, &rows); err == nil {
			proof.PiB = make([][]string, len(rows))
			for i, row := range rows {
				proof.PiB[i] = scalarArray(row)
			}
		}
	}
	if isKind(raw.Protocol, '"') {
		proof.Protocol = *scalar(raw.Protocol)
	}
	if isKind(raw.Curve, '"') {
		proof.Curve = *scalar(raw.Curve)
	}
	return proof
}

func isKind(data []byte, first byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == first
}

// scalar accepts a JSON string or number and returns its text.
func scalar(data json.RawMessage) *string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch {
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		return &s
	case trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil
		}
		s := n.String()
		return &s
	default:
		return nil
	}
}

func scalarArray(data json.RawMessage) []string {
	if !isKind(data, '[') {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		if s := scalar(item); s != nil {
			out[i] = *s
		}
	}
	return out
}
