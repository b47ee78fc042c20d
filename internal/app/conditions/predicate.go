package conditions

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type Kind int

const (
	ContractState Kind = iota
	Balance
	Timestamp
	Registry
	ProofVerification
	LogicCode
)

func (k Kind) String() string {
	switch k {
	case ContractState:
		return "ContractState"
	case Balance:
		return "Balance"
	case Timestamp:
		return "Timestamp"
	case Registry:
		return "Registry"
	case ProofVerification:
		return "ProofVerification"
	case LogicCode:
		return "LogicCode"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Comparator string

const (
	Equal          Comparator = "="
	Greater        Comparator = ">"
	GreaterOrEqual Comparator = ">="
	Less           Comparator = "<"
	LessOrEqual    Comparator = "<="
	Contains       Comparator = "contains"
)

func (c Comparator) Valid() bool {
	switch c {
	case Equal, Greater, GreaterOrEqual, Less, LessOrEqual, Contains:
		return true
	}
	return false
}

// ReturnValueTest compares the (optionally keyed) call result against Value.
type ReturnValueTest struct {
	Key        string
	Comparator Comparator
	Value      string
}

type AbiParam struct {
	InternalType string `json:"internalType"`
	Name         string `json:"name"`
	Type         string `json:"type"`
}

type FunctionAbi struct {
	Inputs          []AbiParam `json:"inputs"`
	Name            string     `json:"name"`
	Outputs         []AbiParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
	Type            string     `json:"type"`
}

func (fa *FunctionAbi) clone() *FunctionAbi {
	if fa == nil {
		return nil
	}
	c := *fa
	c.Inputs = slices.Clone(fa.Inputs)
	c.Outputs = slices.Clone(fa.Outputs)
	return &c
}

// Predicate is one leaf of a condition expression. Kind selects which of the
// optional fields are meaningful: Abi for contract calls, Capability for LogicCode.
type Predicate struct {
	Kind                 Kind
	Chain                string
	Target               string
	StandardContractType string
	Method               string
	Parameters           []string
	Abi                  *FunctionAbi
	Capability           string
	Test                 ReturnValueTest
}

func (p Predicate) Clone() Predicate {
	c := p
	c.Parameters = slices.Clone(p.Parameters)
	c.Abi = p.Abi.clone()
	return c
}

func (p Predicate) Validate() error {
	if p.Chain == "" {
		return fmt.Errorf("%w: %s predicate has no chain", ErrMalformedCondition, p.Kind)
	}
	if p.Method == "" {
		return fmt.Errorf("%w: %s predicate has no method", ErrMalformedCondition, p.Kind)
	}
	if !p.Test.Comparator.Valid() {
		return fmt.Errorf("%w: unsupported comparator %q", ErrMalformedCondition, p.Test.Comparator)
	}
	for _, raw := range append(slices.Clone(p.Parameters), p.Test.Value) {
		if _, err := ParseParam(raw); err != nil {
			return err
		}
	}

	switch p.Kind {
	case ContractState, Registry:
		if !common.IsHexAddress(p.Target) {
			return fmt.Errorf("%w: invalid contract address %q", ErrMalformedCondition, p.Target)
		}
		if p.Abi != nil && len(p.Abi.Inputs) != len(p.Parameters) {
			return fmt.Errorf("%w: abi expects %d inputs, got %d", ErrMalformedCondition, len(p.Abi.Inputs), len(p.Parameters))
		}
	case Balance:
		if p.Method != MethodGetBalance || len(p.Parameters) != 1 {
			return fmt.Errorf("%w: balance predicate needs %s with one address", ErrMalformedCondition, MethodGetBalance)
		}
	case Timestamp:
		if p.Method != MethodGetBlockByNumber {
			return fmt.Errorf("%w: timestamp predicate needs %s", ErrMalformedCondition, MethodGetBlockByNumber)
		}
	case ProofVerification:
		if !common.IsHexAddress(p.Target) {
			return fmt.Errorf("%w: invalid verifier address %q", ErrMalformedCondition, p.Target)
		}
		if p.Abi == nil {
			return fmt.Errorf("%w: proof predicate has no abi", ErrMalformedCondition)
		}
		if len(p.Abi.Inputs) != len(p.Parameters) {
			return fmt.Errorf("%w: abi expects %d inputs, got %d", ErrMalformedCondition, len(p.Abi.Inputs), len(p.Parameters))
		}
		if len(p.SideChannelNames()) == 0 {
			return fmt.Errorf("%w: proof predicate references no side-channel parameter", ErrMalformedCondition)
		}
	case LogicCode:
		if p.Capability == "" {
			return fmt.Errorf("%w: logic predicate has no capability", ErrMalformedCondition)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedCondition, int(p.Kind))
	}
	return nil
}

// SideChannelNames lists, in order of first appearance, the side-channel
// parameters the predicate needs at evaluation time.
func (p Predicate) SideChannelNames() []string {
	var names []string
	for _, raw := range append(slices.Clone(p.Parameters), p.Test.Value) {
		ref, err := ParseParam(raw)
		if err != nil || ref.Namespace != SideChannel {
			continue
		}
		if !slices.Contains(names, ref.Name) {
			names = append(names, ref.Name)
		}
	}
	return names
}
