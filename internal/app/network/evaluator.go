package network

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

const latestBlock = "latest"

// Evaluator decides whether an expression holds. Evaluation is a left fold
// over the sequence: every predicate is evaluated and combinators apply in
// order with no precedence.
type Evaluator struct {
	chains       map[string]ChainReader
	capabilities *capability.Registry
	log          *logger.Logger
}

func NewEvaluator(chains map[string]ChainReader, capabilities *capability.Registry, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	if capabilities == nil {
		capabilities = capability.NewRegistry()
	}
	return &Evaluator{chains: chains, capabilities: capabilities, log: log}
}

// Evaluate resolves identity placeholders from ctx and side-channel
// placeholders from sideChannel (plaintext values by name).
func (e *Evaluator) Evaluate(ctx context.Context, expr conditions.Expression, sideChannel map[string]string) (bool, error) {
	if expr.IsZero() {
		return false, fmt.Errorf("%w: empty expression", conditions.ErrMalformedCondition)
	}

	var (
		result  bool
		pending conditions.Combinator
		index   int
	)
	for _, el := range expr.Elements() {
		if !el.IsPredicate() {
			pending = el.Combinator
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		value, err := e.EvaluatePredicate(ctx, *el.Predicate, sideChannel)
		if err != nil {
			return false, fmt.Errorf("predicate %d (%s): %w", index, el.Predicate.Kind, err)
		}
		e.log.Debugf("Predicate %d (%s) evaluated to %t", index, el.Predicate.Kind, value)

		switch {
		case index == 0:
			result = value
		case pending == conditions.And:
			result = result && value
		default:
			result = result || value
		}
		index++
	}
	return result, nil
}

func (e *Evaluator) EvaluatePredicate(ctx context.Context, p conditions.Predicate, sideChannel map[string]string) (bool, error) {
	args := make([]string, len(p.Parameters))
	for i, raw := range p.Parameters {
		v, err := resolve(ctx, raw, sideChannel)
		if err != nil {
			return false, err
		}
		args[i] = v
	}
	expected, err := resolve(ctx, p.Test.Value, sideChannel)
	if err != nil {
		return false, err
	}

	actual, err := e.observe(ctx, p, args)
	if err != nil {
		return false, err
	}
	return compare(actual, p.Test.Comparator, expected)
}

func (e *Evaluator) observe(ctx context.Context, p conditions.Predicate, args []string) (string, error) {
	if p.Kind == conditions.LogicCode {
		return e.capabilities.Invoke(ctx, p.Capability, args)
	}

	reader, ok := e.chains[p.Chain]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChain, p.Chain)
	}

	switch p.Kind {
	case conditions.Balance:
		if len(args) != 1 || !common.IsHexAddress(args[0]) {
			return "", fmt.Errorf("%w: balance needs one address", ErrUnsupportedPredicate)
		}
		balance, err := reader.BalanceAt(ctx, common.HexToAddress(args[0]))
		if err != nil {
			return "", fmt.Errorf("%w: balance: %v", ErrNetworkFailure, err)
		}
		return balance.String(), nil
	case conditions.Timestamp:
		if len(args) > 0 && args[0] != latestBlock {
			return "", fmt.Errorf("%w: only the %s block is supported", ErrUnsupportedPredicate, latestBlock)
		}
		ts, err := reader.LatestBlockTime(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: block time: %v", ErrNetworkFailure, err)
		}
		return strconv.FormatUint(ts, 10), nil
	case conditions.ContractState, conditions.Registry, conditions.ProofVerification:
		return callContract(ctx, reader, p, args, p.Test.Key)
	}
	return "", fmt.Errorf("%w: kind %s", ErrUnsupportedPredicate, p.Kind)
}

func resolve(ctx context.Context, raw string, sideChannel map[string]string) (string, error) {
	ref, err := conditions.ParseParam(raw)
	if err != nil {
		return "", err
	}

	switch ref.Namespace {
	case conditions.Identity:
		if raw != conditions.UserAddress {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, raw)
		}
		caller, ok := CallerFrom(ctx)
		if !ok {
			return "", fmt.Errorf("%w: no caller for %s", ErrUnresolvedPlaceholder, raw)
		}
		return caller.Hex(), nil
	case conditions.SideChannel:
		v, ok := sideChannel[ref.Name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

func compare(actual string, comparator conditions.Comparator, expected string) (bool, error) {
	if comparator == conditions.Contains {
		return strings.Contains(actual, expected), nil
	}

	a, aok := new(big.Int).SetString(actual, 10)
	b, bok := new(big.Int).SetString(expected, 10)
	if aok && bok {
		c := a.Cmp(b)
		switch comparator {
		case conditions.Equal:
			return c == 0, nil
		case conditions.Greater:
			return c > 0, nil
		case conditions.GreaterOrEqual:
			return c >= 0, nil
		case conditions.Less:
			return c < 0, nil
		case conditions.LessOrEqual:
			return c <= 0, nil
		}
	}

	if comparator != conditions.Equal {
		return false, fmt.Errorf("%w: %q %s %q", ErrNotComparable, actual, comparator, expected)
	}
	if common.IsHexAddress(actual) && common.IsHexAddress(expected) {
		return strings.EqualFold(actual, expected), nil
	}
	return actual == expected, nil
}
