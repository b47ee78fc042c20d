package config

import (
	"fmt"
	"os"

	"enact/internal/app/database"
	"enact/internal/app/outbox"
	"enact/pkg/logger"
	"enact/pkg/rabbitmq"
	"enact/pkg/utilities"
)

const defaultRestPort uint16 = 9000

type EnactConfigJson struct {
	LoggerConf   logger.LoggerConfigJson      `json:"logger"`
	RabbitmqConf rabbitmq.RabbimqConfigJson   `json:"rabbitmq"`
	RestConf     RestConfigJson               `json:"rest"`
	DatabaseConf database.DatabaseConfigJson  `json:"database"`
	ChainsConf   map[string]ChainConfigJson   `json:"chains"`
	SolanaConf   SolanaConfigJson             `json:"solana"`
	OutboxConf   OutboxConfigJson             `json:"outbox"`
	CircuitsConf map[string]CircuitConfigJson `json:"circuits"`
}

func (ecj EnactConfigJson) ConvertToDomain() EnactConfig {
	return EnactConfig{
		LoggerConf:   ecj.LoggerConf.ConvertToDomain(),
		RabbitmqConf: ecj.RabbitmqConf.ConvertToDomain(),
		RestConf:     ecj.RestConf.ConvertToDomain(),
		DatabaseConf: ecj.DatabaseConf.ConvertToDomain(),
		ChainsConf:   utilities.ConvertJsonMapToDomain[ChainConfigJson, ChainConfig](ecj.ChainsConf),
		SolanaConf:   ecj.SolanaConf.ConvertToDomain(),
		OutboxConf:   ecj.OutboxConf.ConvertToDomain(),
		CircuitsConf: utilities.ConvertJsonMapToDomain[CircuitConfigJson, CircuitConfig](ecj.CircuitsConf),
	}
}

type EnactConfig struct {
	LoggerConf   logger.LoggerConfig
	RabbitmqConf rabbitmq.RabbitmqConfig
	RestConf     RestConfig
	DatabaseConf database.DatabaseConfig
	ChainsConf   map[string]ChainConfig
	SolanaConf   SolanaConfig
	OutboxConf   OutboxConfig
	CircuitsConf map[string]CircuitConfig
}

func (ec EnactConfig) GetLoggerConfig() logger.LoggerConfig {
	return ec.LoggerConf
}

func (ec EnactConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig {
	return ec.RabbitmqConf
}

func (ec EnactConfig) GetRestApiPort() uint16 {
	return ec.RestConf.Port
}

// ChainRpcUrls maps chain names used in conditions to their RPC endpoints.
func (ec EnactConfig) ChainRpcUrls() map[string]string {
	urls := make(map[string]string, len(ec.ChainsConf))
	for name, chain := range ec.ChainsConf {
		urls[name] = chain.RpcUrl
	}
	return urls
}

// LoadVerifyingKeys reads the groth16 verifying key of every configured circuit.
func (ec EnactConfig) LoadVerifyingKeys() (map[string][]byte, error) {
	keys := make(map[string][]byte, len(ec.CircuitsConf))
	for id, circuit := range ec.CircuitsConf {
		vk, err := os.ReadFile(circuit.VerifyingKeyPath)
		if err != nil {
			return nil, fmt.Errorf("verifying key of circuit %s: %w", id, err)
		}
		keys[id] = vk
	}
	return keys, nil
}

type RestConfigJson struct {
	Port uint16 `json:"port"`
}

type RestConfig struct {
	Port uint16
}

func (rcj RestConfigJson) ConvertToDomain() RestConfig {
	return RestConfig{
		Port: utilities.Ternary(rcj.Port == 0, defaultRestPort, rcj.Port),
	}
}

type ChainConfigJson struct {
	RpcUrl string `json:"rpc_url"`
}

type ChainConfig struct {
	RpcUrl string
}

func (ccj ChainConfigJson) ConvertToDomain() ChainConfig {
	return ChainConfig{RpcUrl: ccj.RpcUrl}
}

type SolanaConfigJson struct {
	Enabled bool   `json:"enabled"`
	RpcUrl  string `json:"rpc_url"`
}

type SolanaConfig struct {
	Enabled bool
	RpcUrl  string
}

func (scj SolanaConfigJson) ConvertToDomain() SolanaConfig {
	return SolanaConfig{
		Enabled: scj.Enabled,
		RpcUrl:  utilities.Ternary(scj.RpcUrl == "", "http://localhost:8899", scj.RpcUrl),
	}
}

type OutboxConfigJson struct {
	Schedule string `json:"schedule"`
}

type OutboxConfig struct {
	Schedule string
}

func (ocj OutboxConfigJson) ConvertToDomain() OutboxConfig {
	return OutboxConfig{
		Schedule: utilities.Ternary(ocj.Schedule == "", outbox.DefaultSchedule, ocj.Schedule),
	}
}

type CircuitConfigJson struct {
	VerifyingKeyPath string `json:"verifying_key_path"`
}

type CircuitConfig struct {
	VerifyingKeyPath string
}

func (ccj CircuitConfigJson) ConvertToDomain() CircuitConfig {
	return CircuitConfig{VerifyingKeyPath: ccj.VerifyingKeyPath}
}
