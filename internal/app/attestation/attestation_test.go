package attestation

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"enact/internal/app/database"
	"enact/internal/app/model"
	"enact/internal/app/outbox"
	"enact/internal/app/wallet"
	dtocommon "enact/pkg/dto_common"
	"enact/pkg/utilities/timeutil"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testNow int64 = 1733600000

func setupRegistry(t *testing.T) (*GormRegistry, *gorm.DB) {
	t.Helper()
	db, err := database.Open(database.DatabaseConfig{
		Driver:           database.DriverSqlite,
		ConnectionString: filepath.Join(t.TempDir(), "registry.db"),
		Migrate:          true,
	}, nil)
	require.NoError(t, err)

	w, err := wallet.Generate()
	require.NoError(t, err)

	clock := func() timeutil.TimeUTC { return timeutil.TimeUTC{T: testNow} }
	return NewGormRegistry(db, w, WithClock(clock)), db
}

func TestParseSchema(t *testing.T) {
	fields, err := ParseSchema("uint256 age, string name,bool verified ,address holder")
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Type: "uint256", Name: "age"},
		{Type: "string", Name: "name"},
		{Type: "bool", Name: "verified"},
		{Type: "address", Name: "holder"},
	}, fields)
	assert.Equal(t, "uint256 age,string name,bool verified,address holder", CanonicalDefinition(fields))
}

func TestParseSchemaMalformed(t *testing.T) {
	for _, def := range []string{
		"",
		"   ",
		"uint256",
		"uint256 age extra",
		"float age",
		"uint7 age",
		"uint264 age",
		"string 1name",
		"string name, string name",
		"string name,,bool ok",
	} {
		_, err := ParseSchema(def)
		assert.ErrorIs(t, err, ErrMalformedSchema, def)
	}
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		fieldType string
		value     string
		valid     bool
	}{
		{"string", "anything at all", true},
		{"bool", "true", true},
		{"bool", "yes", false},
		{"address", "0xC5E9dDebb09Cd64DfaCab4011A0D5cEDaf7c9BDb", true},
		{"address", "0x1234", false},
		{"uint8", "255", true},
		{"uint8", "256", false},
		{"uint", "115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
		{"uint256", "-1", false},
		{"int8", "-128", true},
		{"int8", "128", false},
		{"int16", "-32769", false},
		{"uint32", "12a", false},
		{"bytes32", "0xab" + strings.Repeat("0", 60) + "cd", true},
		{"bytes32", "0xab", false},
		{"bytes", "0x", true},
		{"bytes", "0xabc", false},
	}

	for _, tt := range tests {
		t.Run(tt.fieldType+" "+tt.value, func(t *testing.T) {
			err := ValidateValue(tt.fieldType, tt.value)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidValue)
			}
		})
	}
}

func TestSchemaUIDIsStable(t *testing.T) {
	a := SchemaUID("uint256 age", common.Address{}, true)
	b := SchemaUID("uint256 age", common.Address{}, true)
	c := SchemaUID("uint256 age", common.Address{}, false)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCreateAndGetSchema(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "uint256 age, string name", Revocable: true})
	require.NoError(t, err)
	assert.Equal(t, SchemaUID("uint256 age,string name", common.Address{}, true).Hex(), schema.UID)
	assert.Equal(t, []string{"age", "name"}, schema.FieldNames())

	got, err := registry.GetSchema(ctx, schema.UID)
	require.NoError(t, err)
	assert.Equal(t, "uint256 age,string name", got.Definition)
	assert.True(t, got.Revocable)

	_, err = registry.CreateSchema(ctx, SchemaRequest{Definition: "uint256 age,string  name", Revocable: true})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = registry.CreateSchema(ctx, SchemaRequest{Definition: "uint256"})
	assert.ErrorIs(t, err, ErrMalformedSchema)

	_, err = registry.CreateSchema(ctx, SchemaRequest{Definition: "uint256 age", Resolver: "resolver"})
	assert.ErrorIs(t, err, ErrMalformedSchema)

	_, err = registry.GetSchema(ctx, "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAttestationPlain(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "uint256 age, string name", Revocable: true})
	require.NoError(t, err)

	created, err := registry.CreateAttestation(ctx, AttestationRequest{
		SchemaUID: schema.UID,
		Data:      map[string]string{"age": "30", "name": "alice"},
	})
	require.NoError(t, err)
	assert.False(t, created.Gated)
	assert.Equal(t, testNow, created.CreatedAt)
	assert.NoError(t, VerifyAttestationSignature(created))

	got, err := registry.GetAttestation(ctx, created.UID)
	require.NoError(t, err)
	fields, err := got.Fields()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"age": "30", "name": "alice"}, fields)

	var events []model.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, string(dtocommon.AttestationCreated), events[0].EventType)
	assert.Equal(t, created.UID, events[0].AttestationUid)

	var payload dtocommon.AttestationEventDto
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &payload))
	assert.Equal(t, schema.UID, payload.SchemaUid)
	assert.NotContains(t, events[0].Payload, "alice")
}

func TestCreateAttestationRejectsBadData(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "uint8 age, bool verified"})
	require.NoError(t, err)

	for name, data := range map[string]map[string]string{
		"missing field": {"age": "30"},
		"extra field":   {"age": "30", "verified": "true", "other": "x"},
		"bad uint":      {"age": "300", "verified": "true"},
		"bad bool":      {"age": "30", "verified": "1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := registry.CreateAttestation(ctx, AttestationRequest{SchemaUID: schema.UID, Data: data})
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	_, err = registry.CreateAttestation(ctx, AttestationRequest{SchemaUID: "0xnope", Data: map[string]string{}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = registry.CreateAttestation(ctx, AttestationRequest{
		SchemaUID: schema.UID,
		Recipient: "bob",
		Data:      map[string]string{"age": "30", "verified": "true"},
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	var count int64
	require.NoError(t, db.Model(&model.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateAttestationGated(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "string secret"})
	require.NoError(t, err)

	payload := &EncryptedPayload{Ciphertext: "c2VhbGVk", DataToEncryptHash: "0xabc", Conditions: `[{"operator":"or"}]`}
	created, err := registry.CreateAttestation(ctx, AttestationRequest{SchemaUID: schema.UID, Encrypted: payload})
	require.NoError(t, err)
	assert.True(t, created.Gated)

	got, err := registry.GetAttestation(ctx, created.UID)
	require.NoError(t, err)
	stored, err := got.EncryptedPayload()
	require.NoError(t, err)
	assert.Equal(t, *payload, stored)

	_, err = got.Fields()
	assert.Error(t, err)
}

func TestAttestationUIDsAreUnique(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "string name"})
	require.NoError(t, err)

	req := AttestationRequest{SchemaUID: schema.UID, Data: map[string]string{"name": "same"}}
	first, err := registry.CreateAttestation(ctx, req)
	require.NoError(t, err)
	second, err := registry.CreateAttestation(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.UID, second.UID)
}

func TestRevokeAttestation(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "string name", Revocable: true})
	require.NoError(t, err)
	created, err := registry.CreateAttestation(ctx, AttestationRequest{SchemaUID: schema.UID, Data: map[string]string{"name": "alice"}})
	require.NoError(t, err)

	revocation, err := registry.RevokeAttestation(ctx, created.UID, "Test revocation")
	require.NoError(t, err)
	assert.Equal(t, Revocation{UID: created.UID, Reason: "Test revocation", RevokedAt: testNow}, revocation)

	got, err := registry.GetAttestation(ctx, created.UID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.Equal(t, "Test revocation", got.RevocationReason)

	_, err = registry.RevokeAttestation(ctx, created.UID, "again")
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = registry.RevokeAttestation(ctx, "0xmissing", "reason")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := outbox.NewRepo(db).GetUnprocessedEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, string(dtocommon.AttestationRevoked), pending[1].EventType)
}

func TestRevokeNonRevocable(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	schema, err := registry.CreateSchema(ctx, SchemaRequest{Definition: "string name", Revocable: false})
	require.NoError(t, err)
	created, err := registry.CreateAttestation(ctx, AttestationRequest{SchemaUID: schema.UID, Data: map[string]string{"name": "alice"}})
	require.NoError(t, err)

	_, err = registry.RevokeAttestation(ctx, created.UID, "reason")
	assert.ErrorIs(t, err, ErrNotRevocable)
}
