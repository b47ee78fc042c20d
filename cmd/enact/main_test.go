package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"enact/internal/app/conditions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `{"database": {"driver": "sqlite", "connection_string": "` + filepath.ToSlash(filepath.Join(dir, "cli.db")) + `"}}`
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	t.Setenv(configEnv, cfgPath)
	t.Setenv(privateKeyEnv, testPrivateKey)
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (map[string]any, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded), out.String())
	return decoded, nil
}

func writeBundle(t *testing.T, dir, pincode string) string {
	t.Helper()
	doc := `{
		"groth16Proof": {"pi_a": ["1","2","1"], "pi_b": [["3","4"],["5","6"],["1","0"]], "pi_c": ["7","8","1"], "protocol": "groth16", "curve": "bn254"},
		"pubkeyHash": "0x` + strings.Repeat("a", 64) + `",
		"timestamp": "` + strconv.FormatInt(time.Now().Unix()-10, 10) + `",
		"nullifierSeed": "1234",
		"nullifier": "5678",
		"signalHash": "0x` + strings.Repeat("b", 64) + `",
		"ageAbove18": "1",
		"gender": "2",
		"pincode": "` + pincode + `",
		"state": "KA"
	}`
	path := filepath.Join(dir, "bundle-"+pincode+".json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestParseData(t *testing.T) {
	data, err := parseData("age=30, name = alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"age": "30", "name": "alice"}, data)

	empty, err := parseData("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"age", "=30", "age=30,,name=x"} {
		_, err := parseData(bad)
		assert.ErrorIs(t, err, errUsage, bad)
	}
}

func TestUsageErrors(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "", "frobnicate")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "", "resolve-schema")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "", "verify-proof")
	assert.ErrorIs(t, err, errUsage)
}

func TestUsageNamesRegisteredCapability(t *testing.T) {
	var out bytes.Buffer
	usage(&out)
	assert.Contains(t, out.String(), "[-capability "+conditions.AnonAadhaarCapability+"]")
	assert.NotContains(t, out.String(), "%!")
}

func TestPlainAttestationFlow(t *testing.T) {
	setupEnv(t)

	schema, err := runCLI(t, "", "create-schema", "-definition", "uint8 age, string name", "-revocable")
	require.NoError(t, err)
	schemaUID := schema["uid"].(string)

	got, err := runCLI(t, "", "resolve-schema", schemaUID)
	require.NoError(t, err)
	assert.Equal(t, "uint8 age,string name", got["schema"])

	created, err := runCLI(t, "", "create-attestation", "-schema", schemaUID, "-data", "age=30,name=alice")
	require.NoError(t, err)
	uid := created["uid"].(string)

	resolved, err := runCLI(t, "", "resolve-attestation", uid)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": "30", "name": "alice"}, resolved["data"])

	revocation, err := runCLI(t, "", "revoke", uid, "-reason", "expired")
	require.NoError(t, err)
	assert.Equal(t, "expired", revocation["reason"])
}

func TestProofGatedFlow(t *testing.T) {
	dir := setupEnv(t)

	schema, err := runCLI(t, "", "create-schema", "-definition", "string secret")
	require.NoError(t, err)

	// answers the prompts: predicate number, then no further conditions
	created, err := runCLI(t, "7\nn\n", "create-attestation", "-schema", schema["uid"].(string), "-data", "secret=hunter2", "-gated")
	require.NoError(t, err)
	assert.Equal(t, true, created["gated"])
	uid := created["uid"].(string)

	_, err = runCLI(t, "", "resolve-attestation", uid)
	assert.Error(t, err)

	_, err = runCLI(t, "", "resolve-attestation", uid, "-proof", writeBundle(t, dir, "5600A1"))
	assert.Error(t, err)

	resolved, err := runCLI(t, "", "resolve-attestation", uid, "-proof", writeBundle(t, dir, "560001"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"secret": "hunter2"}, resolved["data"])

	verdict, err := runCLI(t, "", "verify-proof", "-proof", writeBundle(t, dir, "560001"))
	require.NoError(t, err)
	assert.Equal(t, true, verdict["isValid"])
}
