package network

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainReader is the read-only chain access predicates need.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	LatestBlockTime(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

type EthChainReader struct {
	client *ethclient.Client
}

func DialChain(ctx context.Context, rpcURL string) (*EthChainReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetworkFailure, rpcURL, err)
	}
	return &EthChainReader{client: client}, nil
}

// DialChains connects one reader per configured chain name.
func DialChains(ctx context.Context, rpcURLs map[string]string) (map[string]ChainReader, error) {
	readers := make(map[string]ChainReader, len(rpcURLs))
	for name, url := range rpcURLs {
		reader, err := DialChain(ctx, url)
		if err != nil {
			for _, r := range readers {
				r.(*EthChainReader).Close()
			}
			return nil, fmt.Errorf("chain %s: %w", name, err)
		}
		readers[name] = reader
	}
	return readers, nil
}

func (r *EthChainReader) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return r.client.BalanceAt(ctx, account, nil)
}

func (r *EthChainReader) LatestBlockTime(ctx context.Context) (uint64, error) {
	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

func (r *EthChainReader) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (r *EthChainReader) Close() {
	r.client.Close()
}
