package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"enact/pkg/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	ProgramIdEnv        = "PROGRAM_ID"
	PayerKeypairPathEnv = "PAYER_KEYPAIR_PATH"
)

type Keys struct {
	ProgramPublicKey solana.PublicKey
	PayerPublicKey   solana.PublicKey
	PayerPrivateKey  solana.PrivateKey
}

type SharedSolanaConfig struct {
	Mu   sync.Mutex
	Keys *Keys
}

// LoadSolanaKeys reads the anchor program id and the payer keypair from the
// environment. The keypair defaults to the solana CLI location.
func LoadSolanaKeys(log *logger.Logger) (*SharedSolanaConfig, error) {
	if log == nil {
		log = logger.Nop()
	}
	programIdStr := os.Getenv(ProgramIdEnv)
	if programIdStr == "" {
		return nil, fmt.Errorf("%s env var is not set", ProgramIdEnv)
	}
	programId, err := solana.PublicKeyFromBase58(programIdStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", ProgramIdEnv, programIdStr, err)
	}

	keypairPath := os.Getenv(PayerKeypairPathEnv)
	if keypairPath == "" {
		homeDir, _ := os.UserHomeDir()
		keypairPath = filepath.Join(homeDir, ".config", "solana", "id.json")
	}
	payer, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("reading payer keypair from %s failed: %w", keypairPath, err)
	}

	keys := &Keys{
		ProgramPublicKey: programId,
		PayerPublicKey:   payer.PublicKey(),
		PayerPrivateKey:  payer,
	}
	log.Debugf("Anchor program: %s, payer: %s", keys.ProgramPublicKey, keys.PayerPublicKey)

	return &SharedSolanaConfig{Keys: keys}, nil
}

func (sc *SharedSolanaConfig) ValidateProgramExecutable(ctx context.Context, rpcClient *rpc.Client) error {
	acc, err := rpcClient.GetAccountInfo(ctx, sc.Keys.ProgramPublicKey)
	if err != nil {
		return fmt.Errorf("GetAccountInfo(program) failed: %w", err)
	}
	if acc == nil || acc.Value == nil || !acc.Value.Executable {
		return fmt.Errorf("%s is not an executable account", sc.Keys.ProgramPublicKey)
	}
	return nil
}
