package proof

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"enact/pkg/utilities/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow int64 = 1733600000

var (
	testSignalHash = "0x" + strings.Repeat("ab", 32)
	testPubkeyHash = "0x" + strings.Repeat("0F", 32)
)

func str(s string) *string { return &s }

func fixedClock() Clock {
	return func() timeutil.TimeUTC { return timeutil.TimeUTC{T: testNow} }
}

func validBundle() *ProofBundle {
	return &ProofBundle{
		Groth16Proof: &Groth16Proof{
			PiA:      []string{"11", "12", "1"},
			PiB:      [][]string{{"21", "22"}, {"23", "24"}, {"1", "0"}},
			PiC:      []string{"31", "32", "1"},
			Protocol: "groth16",
			Curve:    "bn254",
		},
		PubkeyHash:    str(testPubkeyHash),
		Timestamp:     str(strconv.FormatInt(testNow-10, 10)),
		NullifierSeed: str("1234"),
		Nullifier:     str("13814867142699877741266914456770721337120552143355576531328009120994951746374"),
		SignalHash:    str(testSignalHash),
		AgeAbove18:    str("1"),
		Gender:        str("2"),
		Pincode:       str("560001"),
		State:         str("KA"),
	}
}

func TestVerifyAcceptsValidBundle(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))
	assert.True(t, v.Verify(validBundle()))
}

func TestVerifyRejectsNonNumericPincode(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))
	b := validBundle()
	b.Pincode = str("5600A1")

	assert.False(t, v.Verify(b))
	assert.ErrorIs(t, v.check(b), errOutOfRangeAttribute)
}

func TestVerifyFreshnessBoundary(t *testing.T) {
	tests := []struct {
		name  string
		ts    string
		valid bool
	}{
		{"exactly one day old", strconv.FormatInt(testNow-86400, 10), true},
		{"one second too old", strconv.FormatInt(testNow-86401, 10), false},
		{"created now", strconv.FormatInt(testNow, 10), true},
		{"future timestamp is tolerated", strconv.FormatInt(testNow+86400*365, 10), true},
		{"unparsable", "yesterday", false},
		{"fractional", "1733599990.5", false},
	}

	v := NewVerifier(WithClock(fixedClock()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBundle()
			b.Timestamp = str(tt.ts)
			assert.Equal(t, tt.valid, v.Verify(b))
			if !tt.valid {
				assert.ErrorIs(t, v.check(b), errStale)
			}
		})
	}
}

func TestVerifyHashFormat(t *testing.T) {
	tests := []struct {
		name  string
		hash  string
		valid bool
	}{
		{"64 hex digits", "0x" + strings.Repeat("a", 64), true},
		{"mixed case", "0x" + strings.Repeat("aF", 32), true},
		{"63 hex digits", "0x" + strings.Repeat("a", 63), false},
		{"65 hex digits", "0x" + strings.Repeat("a", 65), false},
		{"missing prefix", strings.Repeat("a", 64), false},
		{"non hex digit", "0x" + strings.Repeat("a", 63) + "g", false},
		{"decimal field element", "10010552857485068401460384516712912466659718519570795790728634837432493097374", false},
	}

	v := NewVerifier(WithClock(fixedClock()))
	for _, tt := range tests {
		t.Run("signal "+tt.name, func(t *testing.T) {
			b := validBundle()
			b.SignalHash = str(tt.hash)
			assert.Equal(t, tt.valid, v.Verify(b))
		})
		t.Run("pubkey "+tt.name, func(t *testing.T) {
			b := validBundle()
			b.PubkeyHash = str(tt.hash)
			assert.Equal(t, tt.valid, v.Verify(b))
			if !tt.valid {
				assert.ErrorIs(t, v.check(b), errBadHashFormat)
			}
		})
	}
}

func TestVerifyAttributeRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *ProofBundle)
		valid  bool
	}{
		{"gender 1", func(b *ProofBundle) { b.Gender = str("1") }, true},
		{"gender 3", func(b *ProofBundle) { b.Gender = str("3") }, true},
		{"gender 0", func(b *ProofBundle) { b.Gender = str("0") }, false},
		{"gender 4", func(b *ProofBundle) { b.Gender = str("4") }, false},
		{"gender letter", func(b *ProofBundle) { b.Gender = str("M") }, false},
		{"age not above 18", func(b *ProofBundle) { b.AgeAbove18 = str("0") }, false},
		{"age true literal", func(b *ProofBundle) { b.AgeAbove18 = str("true") }, false},
		{"pincode five digits", func(b *ProofBundle) { b.Pincode = str("56000") }, false},
		{"pincode seven digits", func(b *ProofBundle) { b.Pincode = str("5600011") }, false},
		{"pincode leading zero", func(b *ProofBundle) { b.Pincode = str("012345") }, true},
		{"pincode arabic-indic digits", func(b *ProofBundle) { b.Pincode = str("٥٦٠٠٠١") }, false},
		{"state one char", func(b *ProofBundle) { b.State = str("K") }, false},
		{"state three chars", func(b *ProofBundle) { b.State = str("KAR") }, false},
		{"state any content", func(b *ProofBundle) { b.State = str("!1") }, true},
		{"state two non-ascii", func(b *ProofBundle) { b.State = str("éà") }, true},
		{"state astral symbol counts twice", func(b *ProofBundle) { b.State = str("😀") }, true},
	}

	v := NewVerifier(WithClock(fixedClock()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBundle()
			tt.mutate(b)
			assert.Equal(t, tt.valid, v.Verify(b))
		})
	}
}

func TestVerifyProofShape(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Groth16Proof)
	}{
		{"bn128 curve name", func(p *Groth16Proof) { p.Curve = "bn128" }},
		{"curve is case sensitive", func(p *Groth16Proof) { p.Curve = "BN254" }},
		{"plonk protocol", func(p *Groth16Proof) { p.Protocol = "plonk" }},
		{"pi_a missing", func(p *Groth16Proof) { p.PiA = nil }},
		{"pi_b missing", func(p *Groth16Proof) { p.PiB = nil }},
		{"pi_c missing", func(p *Groth16Proof) { p.PiC = nil }},
	}

	v := NewVerifier(WithClock(fixedClock()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBundle()
			tt.mutate(b.Groth16Proof)
			assert.False(t, v.Verify(b))
			assert.ErrorIs(t, v.check(b), errBadProofShape)
		})
	}
}

func TestVerifyStructure(t *testing.T) {
	fields := map[string]func(b *ProofBundle){
		"groth16Proof":  func(b *ProofBundle) { b.Groth16Proof = nil },
		"pubkeyHash":    func(b *ProofBundle) { b.PubkeyHash = nil },
		"timestamp":     func(b *ProofBundle) { b.Timestamp = nil },
		"nullifierSeed": func(b *ProofBundle) { b.NullifierSeed = nil },
		"nullifier":     func(b *ProofBundle) { b.Nullifier = nil },
		"signalHash":    func(b *ProofBundle) { b.SignalHash = nil },
		"ageAbove18":    func(b *ProofBundle) { b.AgeAbove18 = nil },
		"gender":        func(b *ProofBundle) { b.Gender = nil },
		"pincode":       func(b *ProofBundle) { b.Pincode = nil },
		"state":         func(b *ProofBundle) { b.State = nil },
	}

	v := NewVerifier(WithClock(fixedClock()))
	for name, drop := range fields {
		t.Run(name, func(t *testing.T) {
			b := validBundle()
			drop(b)
			assert.False(t, v.Verify(b))
			assert.ErrorIs(t, v.check(b), errStructuralInvalid)
		})
	}

	assert.False(t, v.Verify(nil))
}

func TestVerifyCheckOrder(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))

	// stale and badly shaped: freshness is reported first
	b := validBundle()
	b.Timestamp = str(strconv.FormatInt(testNow-90000, 10))
	b.Groth16Proof.Curve = "bn128"
	b.Gender = str("9")
	assert.ErrorIs(t, v.check(b), errStale)

	b.Timestamp = str(strconv.FormatInt(testNow, 10))
	assert.ErrorIs(t, v.check(b), errBadProofShape)

	b.Groth16Proof.Curve = "bn254"
	assert.ErrorIs(t, v.check(b), errOutOfRangeAttribute)
}

func TestVerifyJSON(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))

	doc := `{
		"groth16Proof": {
			"pi_a": ["11", "12", "1"],
			"pi_b": [["21", "22"], ["23", "24"], ["1", "0"]],
			"pi_c": ["31", "32", "1"],
			"protocol": "groth16",
			"curve": "bn254"
		},
		"pubkeyHash": "` + testPubkeyHash + `",
		"timestamp": ` + strconv.FormatInt(testNow-10, 10) + `,
		"nullifierSeed": 1234,
		"nullifier": "42",
		"signalHash": "` + testSignalHash + `",
		"ageAbove18": "1",
		"gender": "2",
		"pincode": "560001",
		"state": "KA"
	}`
	assert.True(t, v.VerifyJSON([]byte(doc)))

	bundle, err := ParseBundle([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "1234", *bundle.NullifierSeed)
	assert.Equal(t, []string{"23", "24"}, bundle.Groth16Proof.PiB[1])

	rejected := []string{
		`not json`,
		`[]`,
		`{}`,
		strings.Replace(doc, `"pi_b": [["21", "22"], ["23", "24"], ["1", "0"]]`, `"pi_b": "21,22"`, 1),
		strings.Replace(doc, `"state": "KA"`, `"state": null`, 1),
		strings.Replace(doc, `"gender": "2"`, `"gender": true`, 1),
		strings.Replace(doc, `"nullifier": "42",`, ``, 1),
		strings.Replace(doc, `"groth16Proof": {`, `"groth16Proof": null, "ignored": {`, 1),
	}
	for _, raw := range rejected {
		assert.False(t, v.VerifyJSON([]byte(raw)), raw)
	}

	tests := []struct {
		name    string
		old     string
		new     string
		allowed bool
	}{
		{"age as number", `"ageAbove18": "1"`, `"ageAbove18": 1`, false},
		{"gender as number", `"gender": "2"`, `"gender": 2`, false},
		{"state as number", `"state": "KA"`, `"state": 12`, false},
		{"pincode as number", `"pincode": "560001"`, `"pincode": 560001`, true},
		{"timestamp as string", strconv.FormatInt(testNow-10, 10) + `,`, `"` + strconv.FormatInt(testNow-10, 10) + `",`, true},
		{"timestamp as null", strconv.FormatInt(testNow-10, 10) + `,`, `null,`, false},
		{"null nullifier seed", `"nullifierSeed": 1234`, `"nullifierSeed": null`, true},
		{"object nullifier seed", `"nullifierSeed": 1234`, `"nullifierSeed": {}`, true},
		{"state as two element array", `"state": "KA"`, `"state": ["K", "A"]`, true},
		{"state as three element array", `"state": "KA"`, `"state": ["K", "A", "R"]`, false},
		{"protocol as number", `"protocol": "groth16"`, `"protocol": 16`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(doc, tt.old, tt.new, 1)
			require.NotEqual(t, doc, raw)
			assert.Equal(t, tt.allowed, v.VerifyJSON([]byte(raw)))
		})
	}
}

func TestVerifyNullFieldsPassStructure(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))
	doc, err := validBundle().Serialize()
	require.NoError(t, err)

	nulled := strings.Replace(string(doc), `"nullifier":"13814867142699877741266914456770721337120552143355576531328009120994951746374"`, `"nullifier":null`, 1)
	require.NotEqual(t, string(doc), nulled)
	b, err := ParseBundle([]byte(nulled))
	require.NoError(t, err)
	assert.Nil(t, b.Nullifier)
	assert.True(t, b.Has(KeyNullifier))
	assert.NoError(t, v.check(b))

	delete(b.submitted, KeyNullifier)
	assert.ErrorIs(t, v.check(b), errStructuralInvalid)
}

func TestSerializeKeepsSubmittedKinds(t *testing.T) {
	b, err := ParseBundle([]byte(`{"gender": 2, "state": "KA", "pincode": 560001, "nullifierSeed": null, "extra": true}`))
	require.NoError(t, err)

	doc, err := b.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"gender": 2, "state": "KA", "pincode": 560001, "nullifierSeed": null}`, string(doc))

	_, ok := b.StringValue(KeyGender)
	assert.False(t, ok)
	state, ok := b.StringValue(KeyState)
	assert.True(t, ok)
	assert.Equal(t, "KA", state)

	built, err := validBundle().Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(built), `"gender":"2"`)
	assert.Contains(t, string(built), `"pi_b":[["21","22"],["23","24"],["1","0"]]`)
}

func TestVerifyIsReentrant(t *testing.T) {
	v := NewVerifier(WithClock(fixedClock()))
	var wg sync.WaitGroup
	results := make([]bool, 32)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := validBundle()
			if i%2 == 1 {
				b.State = str("KAR")
			}
			results[i] = v.Verify(b)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.Equal(t, i%2 == 0, ok, "bundle %d", i)
	}
}
