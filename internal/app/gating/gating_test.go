package gating

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"enact/internal/app/attestation"
	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/internal/app/database"
	"enact/internal/app/network"
	"enact/internal/app/params"
	"enact/internal/app/proof"
	"enact/internal/app/wallet"
	"enact/pkg/utilities/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow int64 = 1733600000

type decryptCall struct {
	expr      conditions.Expression
	resources []string
}

// fakeNetwork keeps plaintexts by ciphertext and refuses to decrypt when deny is set.
type fakeNetwork struct {
	sealed     map[string][]byte
	calls      []decryptCall
	deny       error
	encryptErr error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{sealed: map[string][]byte{}}
}

func (f *fakeNetwork) Encrypt(_ context.Context, plaintext []byte, _ conditions.Expression) (network.Ciphertext, error) {
	if f.encryptErr != nil {
		return network.Ciphertext{}, f.encryptErr
	}
	handle := "ct-" + strconv.Itoa(len(f.sealed))
	f.sealed[handle] = plaintext
	return network.Ciphertext{Ciphertext: handle, DataToEncryptHash: "hash-" + handle}, nil
}

func (f *fakeNetwork) Decrypt(_ context.Context, ct network.Ciphertext, expr conditions.Expression, resources []string) ([]byte, error) {
	f.calls = append(f.calls, decryptCall{expr: expr, resources: resources})
	if f.deny != nil {
		return nil, f.deny
	}
	return f.sealed[ct.Ciphertext], nil
}

func setupRegistry(t *testing.T) *attestation.GormRegistry {
	t.Helper()
	db, err := database.Open(database.DatabaseConfig{
		Driver:           database.DriverSqlite,
		ConnectionString: filepath.Join(t.TempDir(), "gating.db"),
		Migrate:          true,
	}, nil)
	require.NoError(t, err)
	w, err := wallet.Generate()
	require.NoError(t, err)
	return attestation.NewGormRegistry(db, w, attestation.WithClock(func() timeutil.TimeUTC { return timeutil.TimeUTC{T: testNow} }))
}

func expression(t *testing.T, names ...string) conditions.Expression {
	t.Helper()
	var elements []conditions.Element
	for i, name := range names {
		if i%2 == 1 {
			c, err := conditions.ParseCombinator(name)
			require.NoError(t, err)
			elements = append(elements, conditions.CombinatorElement(c))
			continue
		}
		p, err := conditions.DefaultCatalog().Lookup(name)
		require.NoError(t, err)
		elements = append(elements, conditions.PredicateElement(p))
	}
	expr, err := conditions.NewExpression(elements...)
	require.NoError(t, err)
	return expr
}

func bundleDoc(pincode string) string {
	return `{
		"groth16Proof": {"pi_a": ["1","2","1"], "pi_b": [["3","4"],["5","6"],["1","0"]], "pi_c": ["7","8","1"], "protocol": "groth16", "curve": "bn254"},
		"pubkeyHash": "0x` + strings.Repeat("a", 64) + `",
		"timestamp": "` + strconv.FormatInt(testNow-10, 10) + `",
		"nullifierSeed": "1234",
		"nullifier": "5678",
		"signalHash": "0x` + strings.Repeat("b", 64) + `",
		"ageAbove18": "1",
		"gender": "2",
		"pincode": "` + pincode + `",
		"state": "KA"
	}`
}

func bundle(t *testing.T, pincode string) *proof.ProofBundle {
	t.Helper()
	b, err := proof.ParseBundle([]byte(bundleDoc(pincode)))
	require.NoError(t, err)
	return b
}

func createSchema(t *testing.T, registry attestation.Registry) attestation.Schema {
	t.Helper()
	schema, err := registry.CreateSchema(context.Background(), attestation.SchemaRequest{Definition: "uint8 age, string name", Revocable: true})
	require.NoError(t, err)
	return schema
}

func TestCreateStoresOnlyCiphertextAndConditions(t *testing.T) {
	registry := setupRegistry(t)
	net := newFakeNetwork()
	o := New(registry, net, nil)
	schema := createSchema(t, registry)
	expr := expression(t, "NFT Owner", "or", "Timelock")

	created, err := o.Create(context.Background(), CreateRequest{
		SchemaUID:  schema.UID,
		Data:       map[string]string{"age": "30", "name": "alice"},
		Conditions: expr,
	})
	require.NoError(t, err)
	assert.True(t, created.Gated)
	assert.NotContains(t, string(created.Data), "alice")

	fetched, err := o.Fetch(context.Background(), created.UID)
	require.NoError(t, err)
	payload, err := fetched.EncryptedPayload()
	require.NoError(t, err)
	assert.Equal(t, "ct-0", payload.Ciphertext)

	assert.NotContains(t, payload.Conditions, `\u003e`)
	stored, err := conditions.ParseExpression([]byte(payload.Conditions))
	require.NoError(t, err)
	want, err := json.Marshal(expr)
	require.NoError(t, err)
	got, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, []conditions.Combinator{conditions.Or}, stored.Combinators())
}

func TestCreateRejectsBeforeEncrypting(t *testing.T) {
	registry := setupRegistry(t)
	net := newFakeNetwork()
	o := New(registry, net, nil)
	schema := createSchema(t, registry)

	_, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "300", "name": "x"}, Conditions: expression(t, "Timelock")})
	assert.ErrorIs(t, err, attestation.ErrInvalidValue)

	_, err = o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "3", "name": "x"}})
	assert.ErrorIs(t, err, conditions.ErrMalformedCondition)

	_, err = o.Create(context.Background(), CreateRequest{SchemaUID: "0xmissing", Conditions: expression(t, "Timelock")})
	assert.ErrorIs(t, err, attestation.ErrNotFound)
	assert.Empty(t, net.sealed)

	net.encryptErr = network.ErrNetworkFailure
	_, err = o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "3", "name": "x"}, Conditions: expression(t, "Timelock")})
	assert.ErrorIs(t, err, network.ErrNetworkFailure)
}

func TestResolveWithoutSideChannelNeverAsksForProof(t *testing.T) {
	registry := setupRegistry(t)
	net := newFakeNetwork()
	o := New(registry, net, nil)
	schema := createSchema(t, registry)

	created, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "alice"}, Conditions: expression(t, "Token Holder")})
	require.NoError(t, err)

	asked := false
	source := ProofSourceFunc(func(context.Context) (*proof.ProofBundle, error) {
		asked = true
		return nil, nil
	})
	resolved, err := o.Resolve(context.Background(), created.UID, source)
	require.NoError(t, err)
	assert.False(t, asked)
	assert.Equal(t, map[string]string{"age": "30", "name": "alice"}, resolved.Data)
	require.Len(t, net.calls, 1)
	assert.Empty(t, net.calls[0].resources)
}

func TestResolveForwardsEncodedParameters(t *testing.T) {
	registry := setupRegistry(t)
	net := newFakeNetwork()
	o := New(registry, net, nil)
	schema := createSchema(t, registry)

	created, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "alice"}, Conditions: expression(t, "AnonAadhaar")})
	require.NoError(t, err)

	_, err = o.Resolve(context.Background(), created.UID, nil)
	assert.ErrorIs(t, err, ErrProofRequired)
	_, err = o.Resolve(context.Background(), created.UID, StaticProof(nil))
	assert.ErrorIs(t, err, ErrProofRequired)
	assert.Empty(t, net.calls)

	b := bundle(t, "560001")
	_, err = o.Resolve(context.Background(), created.UID, StaticProof(b))
	require.NoError(t, err)

	expected, err := params.Encode(b)
	require.NoError(t, err)
	require.Len(t, net.calls, 1)
	assert.Equal(t, expected.Resources(), net.calls[0].resources)
}

func TestResolveSurfacesNetworkFailures(t *testing.T) {
	registry := setupRegistry(t)
	net := newFakeNetwork()
	o := New(registry, net, nil)
	schema := createSchema(t, registry)

	created, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "alice"}, Conditions: expression(t, "Timelock")})
	require.NoError(t, err)

	failure := errors.New("node unreachable")
	net.deny = failure
	_, err = o.Resolve(context.Background(), created.UID, nil)
	assert.Equal(t, failure, err)

	net.deny = network.ErrConditionsUnsatisfied
	_, err = o.Resolve(context.Background(), created.UID, nil)
	assert.ErrorIs(t, err, network.ErrConditionsUnsatisfied)
}

func TestResolvePlainAndRevoked(t *testing.T) {
	registry := setupRegistry(t)
	o := New(registry, newFakeNetwork(), nil)
	schema := createSchema(t, registry)

	plain, err := registry.CreateAttestation(context.Background(), attestation.AttestationRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "bob"}})
	require.NoError(t, err)

	resolved, err := o.Resolve(context.Background(), plain.UID, nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", resolved.Data["name"])

	_, err = o.Revoke(context.Background(), plain.UID, "Test revocation")
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), plain.UID, nil)
	assert.ErrorIs(t, err, attestation.ErrRevoked)

	_, err = o.Resolve(context.Background(), "0xmissing", nil)
	assert.ErrorIs(t, err, attestation.ErrNotFound)
}

func TestProofGatedAttestationWithLocalNetwork(t *testing.T) {
	registry := setupRegistry(t)
	verifier := proof.NewVerifier(proof.WithClock(func() timeutil.TimeUTC { return timeutil.TimeUTC{T: testNow} }))
	evaluator := network.NewEvaluator(nil, capability.NewRegistry(capability.NewAnonAadhaar(verifier)), nil)
	o := New(registry, network.NewLocalNetwork(network.NewMemoryKeyStore(), evaluator, nil), nil)
	schema := createSchema(t, registry)

	created, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "alice"}, Conditions: expression(t, "AnonAadhaar Lit Action")})
	require.NoError(t, err)

	resolved, err := o.Resolve(context.Background(), created.UID, StaticProof(bundle(t, "560001")))
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Data["name"])

	_, err = o.Resolve(context.Background(), created.UID, StaticProof(bundle(t, "5600A1")))
	assert.ErrorIs(t, err, network.ErrConditionsUnsatisfied)

	numericGender, err := proof.ParseBundle([]byte(strings.Replace(bundleDoc("560001"), `"gender": "2"`, `"gender": 2`, 1)))
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), created.UID, StaticProof(numericGender))
	assert.ErrorIs(t, err, network.ErrConditionsUnsatisfied)
}

// refusingRegistry fails every attestation write after the schema lookup.
type refusingRegistry struct {
	*attestation.GormRegistry
}

func (refusingRegistry) CreateAttestation(context.Context, attestation.AttestationRequest) (attestation.Attestation, error) {
	return attestation.Attestation{}, errors.New("registry unavailable")
}

type recordingKeyStore struct {
	*network.MemoryKeyStore
	handles []string
}

func (r *recordingKeyStore) Put(ctx context.Context, key network.StoredKey) error {
	r.handles = append(r.handles, key.Handle)
	return r.MemoryKeyStore.Put(ctx, key)
}

func TestCreateDiscardsKeyWhenRegistryFails(t *testing.T) {
	registry := setupRegistry(t)
	schema := createSchema(t, registry)
	keys := &recordingKeyStore{MemoryKeyStore: network.NewMemoryKeyStore()}
	net := network.NewLocalNetwork(keys, network.NewEvaluator(nil, nil, nil), nil)
	o := New(refusingRegistry{registry}, net, nil)

	_, err := o.Create(context.Background(), CreateRequest{SchemaUID: schema.UID, Data: map[string]string{"age": "30", "name": "alice"}, Conditions: expression(t, "Timelock")})
	require.EqualError(t, err, "registry unavailable")

	require.Len(t, keys.handles, 1)
	_, err = keys.Get(context.Background(), keys.handles[0])
	assert.ErrorIs(t, err, network.ErrKeyNotFound)
}
