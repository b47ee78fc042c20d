package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"enact/internal/app/database"
	"enact/pkg/utilities"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
	"logger": {"log_level": 1},
	"rabbitmq": {
		"user": "guest",
		"password": "guest",
		"publishers": [{"publisher_alias": "AttestationEventsPublisher", "exchange": "attestation", "routing_key": "attestation.events"}],
		"consumers": [{"consumer_alias": "AttestationEventsConsumer", "consumer_tag": "anchor", "queue_name": "attestation.events"}]
	},
	"database": {"driver": "postgres", "connection_string": "host=db user=enact", "migrate": true},
	"chains": {"amoy": {"rpc_url": "https://rpc-amoy.polygon.technology"}},
	"outbox": {},
	"circuits": {"adult": {"verifying_key_path": "%s"}}
}`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	vkPath := filepath.Join(dir, "adult.vk")
	require.NoError(t, os.WriteFile(vkPath, []byte{1, 2, 3}, 0o600))

	path := filepath.Join(dir, "config.json")
	content := []byte(fmt.Sprintf(sampleConfig, vkPath))
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := utilities.ReadConfig[EnactConfigJson, EnactConfig](path)
	require.NoError(t, err)

	assert.Equal(t, zerolog.InfoLevel, cfg.GetLoggerConfig().LogLevel)
	assert.Equal(t, uint16(9000), cfg.GetRestApiPort())
	assert.Equal(t, "rabbitmq", cfg.GetRabbitmqConfig().Host)
	require.Len(t, cfg.GetRabbitmqConfig().PublishersConfig, 1)
	assert.Equal(t, database.DriverPostgres, cfg.DatabaseConf.Driver)
	assert.True(t, cfg.DatabaseConf.Migrate)
	assert.Equal(t, map[string]string{"amoy": "https://rpc-amoy.polygon.technology"}, cfg.ChainRpcUrls())
	assert.Equal(t, "@every 1m", cfg.OutboxConf.Schedule)
	assert.False(t, cfg.SolanaConf.Enabled)
	assert.Equal(t, "http://localhost:8899", cfg.SolanaConf.RpcUrl)

	keys, err := cfg.LoadVerifyingKeys()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"adult": {1, 2, 3}}, keys)
}

func TestLoadVerifyingKeysMissingFile(t *testing.T) {
	cfg := EnactConfigJson{CircuitsConf: map[string]CircuitConfigJson{
		"adult": {VerifyingKeyPath: filepath.Join(t.TempDir(), "missing.vk")},
	}}.ConvertToDomain()

	_, err := cfg.LoadVerifyingKeys()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaults(t *testing.T) {
	cfg := EnactConfigJson{}.ConvertToDomain()
	assert.Equal(t, database.DriverSqlite, cfg.DatabaseConf.Driver)
	assert.Equal(t, "enact.db", cfg.DatabaseConf.ConnectionString)
	assert.Empty(t, cfg.ChainRpcUrls())
}
