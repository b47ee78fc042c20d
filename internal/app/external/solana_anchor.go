package external

import (
	"context"
	"fmt"

	"enact/pkg/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

const accountHeaderSize = 8

type AnchorReceipt struct {
	Signature solana.Signature
	Account   solana.PublicKey
}

// Anchor writes an attestation record on chain.
type Anchor interface {
	Anchor(ctx context.Context, record AnchorRecord) (AnchorReceipt, error)
}

type SolanaAnchor struct {
	Config    *SharedSolanaConfig
	RpcClient *rpc.Client
	log       *logger.Logger
}

func NewSolanaAnchor(rpcUrl string, config *SharedSolanaConfig, log *logger.Logger) *SolanaAnchor {
	if log == nil {
		log = logger.Nop()
	}
	return &SolanaAnchor{
		Config:    config,
		RpcClient: rpc.New(rpcUrl),
		log:       log,
	}
}

func (sa *SolanaAnchor) Anchor(ctx context.Context, record AnchorRecord) (AnchorReceipt, error) {
	data, err := record.SerializeBorsh()
	if err != nil {
		return AnchorReceipt{}, err
	}
	return sa.createAndPopulateAccount(ctx, data)
}

// createAndPopulateAccount creates a program owned account sized for data
// and hands data to the program in the same transaction.
func (sa *SolanaAnchor) createAndPopulateAccount(ctx context.Context, data []byte) (AnchorReceipt, error) {
	space := calculateRequiredAccountSpace(data)
	rent, err := sa.RpcClient.GetMinimumBalanceForRentExemption(ctx, space, rpc.CommitmentFinalized)
	if err != nil {
		return AnchorReceipt{}, fmt.Errorf("rent exemption: %w", err)
	}
	sa.log.Debugf("Anchor data size: %d bytes, allocated space: %d bytes, rent: %d lamports", len(data), space, rent)

	newAccount, err := solana.NewRandomPrivateKey()
	if err != nil {
		return AnchorReceipt{}, err
	}

	// mutex lock to read correct values at current time
	sa.Config.Mu.Lock()
	keys := *sa.Config.Keys
	sa.Config.Mu.Unlock()

	createAccountInstruction := system.NewCreateAccountInstruction(
		rent,
		space,
		keys.ProgramPublicKey, // owner
		keys.PayerPublicKey,   // payer
		newAccount.PublicKey(),
	).Build()

	writeInstruction := solana.NewInstruction(
		keys.ProgramPublicKey,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(newAccount.PublicKey(), true, false),
			solana.NewAccountMeta(keys.PayerPublicKey, true, true),
		},
		data,
	)

	latest, err := sa.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return AnchorReceipt{}, fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{createAccountInstruction, writeInstruction},
		latest.Value.Blockhash,
		solana.TransactionPayer(keys.PayerPublicKey),
	)
	if err != nil {
		return AnchorReceipt{}, err
	}

	_, err = tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(keys.PayerPublicKey) {
			return &keys.PayerPrivateKey
		}
		if pk.Equals(newAccount.PublicKey()) {
			return &newAccount
		}
		return nil
	})
	if err != nil {
		return AnchorReceipt{}, fmt.Errorf("sign anchor transaction: %w", err)
	}

	signature, err := sa.RpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return AnchorReceipt{}, fmt.Errorf("send anchor transaction: %w", err)
	}

	sa.log.Infof("Anchored record in account %s with signature %s", newAccount.PublicKey(), signature)
	return AnchorReceipt{Signature: signature, Account: newAccount.PublicKey()}, nil
}

// ReadRecord fetches and decodes an anchored record.
func (sa *SolanaAnchor) ReadRecord(ctx context.Context, account solana.PublicKey) (AnchorRecord, error) {
	info, err := sa.RpcClient.GetAccountInfo(ctx, account)
	if err != nil {
		return AnchorRecord{}, fmt.Errorf("fetch account %s: %w", account, err)
	}
	if info.Value == nil {
		return AnchorRecord{}, fmt.Errorf("account %s not found", account)
	}
	data := info.Value.Data.GetBinary()
	if len(data) < accountHeaderSize {
		return AnchorRecord{}, fmt.Errorf("account %s holds %d bytes", account, len(data))
	}
	return DecodeAnchorRecord(data[accountHeaderSize:])
}

// calculateRequiredAccountSpace leaves room for the program's account
// header and rounds to 8 bytes.
func calculateRequiredAccountSpace(data []byte) uint64 {
	totalSize := len(data) + accountHeaderSize
	if totalSize%8 != 0 {
		totalSize += 8 - (totalSize % 8)
	}
	return uint64(totalSize)
}
