package network

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type callerKey struct{}

// WithCaller attaches the address an unlock request is made for.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}
