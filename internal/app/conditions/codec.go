package conditions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	conditionEvmBasic    = "evmBasic"
	conditionEvmContract = "evmContract"
	conditionLitAction   = "LitAction"

	standardTimestamp       = "timestamp"
	standardProofOfHumanity = "ProofOfHumanity"
)

type basicReturnValueTestJson struct {
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
}

type contractReturnValueTestJson struct {
	Key        string `json:"key"`
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
}

type evmBasicJson struct {
	ConditionType        string                   `json:"conditionType"`
	ContractAddress      string                   `json:"contractAddress"`
	StandardContractType string                   `json:"standardContractType"`
	Chain                string                   `json:"chain"`
	Method               string                   `json:"method"`
	Parameters           []string                 `json:"parameters"`
	ReturnValueTest      basicReturnValueTestJson `json:"returnValueTest"`
}

type evmContractJson struct {
	ConditionType   string                      `json:"conditionType"`
	ContractAddress string                      `json:"contractAddress"`
	FunctionName    string                      `json:"functionName"`
	FunctionParams  []string                    `json:"functionParams"`
	FunctionAbi     *FunctionAbi                `json:"functionAbi"`
	Chain           string                      `json:"chain"`
	ReturnValueTest contractReturnValueTestJson `json:"returnValueTest"`
}

type capabilityJson struct {
	ConditionType        string                   `json:"conditionType"`
	ContractAddress      string                   `json:"contractAddress"`
	StandardContractType string                   `json:"standardContractType"`
	Chain                string                   `json:"chain"`
	Method               string                   `json:"method"`
	Parameters           []string                 `json:"parameters"`
	ReturnValueTest      basicReturnValueTestJson `json:"returnValueTest"`
	Capability           string                   `json:"capability"`
}

// elementJson is the union of every accepted wire shape.
type elementJson struct {
	Operator             *string                     `json:"operator"`
	ConditionType        string                      `json:"conditionType"`
	ContractAddress      string                      `json:"contractAddress"`
	StandardContractType string                      `json:"standardContractType"`
	Chain                string                      `json:"chain"`
	Method               string                      `json:"method"`
	Parameters           []string                    `json:"parameters"`
	FunctionName         string                      `json:"functionName"`
	FunctionParams       []string                    `json:"functionParams"`
	FunctionAbi          *FunctionAbi                `json:"functionAbi"`
	ReturnValueTest      contractReturnValueTestJson `json:"returnValueTest"`
	Capability           string                      `json:"capability"`
	LitActionCode        *string                     `json:"litActionCode"`
}

func nonNil(params []string) []string {
	if params == nil {
		return []string{}
	}
	return params
}

func (p Predicate) MarshalJSON() ([]byte, error) {
	switch {
	case p.Kind == LogicCode:
		return marshalText(capabilityJson{
			ConditionType:        conditionLitAction,
			ContractAddress:      p.Target,
			StandardContractType: p.StandardContractType,
			Chain:                p.Chain,
			Method:               p.Method,
			Parameters:           nonNil(p.Parameters),
			ReturnValueTest:      basicReturnValueTestJson{Comparator: string(p.Test.Comparator), Value: p.Test.Value},
			Capability:           p.Capability,
		})
	case p.Kind == ProofVerification || p.Abi != nil:
		return marshalText(evmContractJson{
			ConditionType:   conditionEvmContract,
			ContractAddress: p.Target,
			FunctionName:    p.Method,
			FunctionParams:  nonNil(p.Parameters),
			FunctionAbi:     p.Abi,
			Chain:           p.Chain,
			ReturnValueTest: contractReturnValueTestJson{Key: p.Test.Key, Comparator: string(p.Test.Comparator), Value: p.Test.Value},
		})
	default:
		return marshalText(evmBasicJson{
			ConditionType:        conditionEvmBasic,
			ContractAddress:      p.Target,
			StandardContractType: p.StandardContractType,
			Chain:                p.Chain,
			Method:               p.Method,
			Parameters:           nonNil(p.Parameters),
			ReturnValueTest:      basicReturnValueTestJson{Comparator: string(p.Test.Comparator), Value: p.Test.Value},
		})
	}
}

func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw elementJson
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCondition, err)
	}
	if raw.Operator != nil {
		return fmt.Errorf("%w: operator where a predicate was expected", ErrOutOfOrder)
	}
	decoded, err := raw.predicate()
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func (raw elementJson) predicate() (Predicate, error) {
	test := ReturnValueTest{
		Key:        raw.ReturnValueTest.Key,
		Comparator: Comparator(raw.ReturnValueTest.Comparator),
		Value:      raw.ReturnValueTest.Value,
	}

	var p Predicate
	switch raw.ConditionType {
	case conditionLitAction:
		if raw.LitActionCode != nil {
			return Predicate{}, fmt.Errorf("%w: embedded action code is not accepted, reference a capability", ErrMalformedCondition)
		}
		p = Predicate{
			Kind:                 LogicCode,
			Chain:                raw.Chain,
			Target:               raw.ContractAddress,
			StandardContractType: raw.StandardContractType,
			Method:               raw.Method,
			Parameters:           raw.Parameters,
			Capability:           raw.Capability,
			Test:                 test,
		}
	case conditionEvmContract:
		p = Predicate{
			Kind:       ContractState,
			Chain:      raw.Chain,
			Target:     raw.ContractAddress,
			Method:     raw.FunctionName,
			Parameters: raw.FunctionParams,
			Abi:        raw.FunctionAbi,
			Test:       test,
		}
		if len(p.SideChannelNames()) > 0 {
			p.Kind = ProofVerification
		}
	case conditionEvmBasic:
		p = Predicate{
			Kind:                 ContractState,
			Chain:                raw.Chain,
			Target:               raw.ContractAddress,
			StandardContractType: raw.StandardContractType,
			Method:               raw.Method,
			Parameters:           raw.Parameters,
			Test:                 test,
		}
		switch {
		case raw.StandardContractType == standardTimestamp:
			p.Kind = Timestamp
		case raw.Method == MethodGetBalance:
			p.Kind = Balance
		case raw.StandardContractType == standardProofOfHumanity:
			p.Kind = Registry
		}
	default:
		return Predicate{}, fmt.Errorf("%w: unsupported conditionType %q", ErrMalformedCondition, raw.ConditionType)
	}

	if err := p.Validate(); err != nil {
		return Predicate{}, err
	}
	return p, nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	if e.IsPredicate() {
		return e.Predicate.MarshalJSON()
	}
	return marshalText(struct {
		Operator Combinator `json:"operator"`
	}{Operator: e.Combinator})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw elementJson
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCondition, err)
	}
	if raw.Operator != nil {
		c, err := ParseCombinator(*raw.Operator)
		if err != nil {
			return err
		}
		*e = Element{Combinator: c}
		return nil
	}
	p, err := raw.predicate()
	if err != nil {
		return err
	}
	*e = Element{Predicate: &p}
	return nil
}

func (e Expression) MarshalJSON() ([]byte, error) {
	if e.elements == nil {
		return []byte("[]"), nil
	}
	return marshalText(e.elements)
}

// Encode returns the stored text form of the expression. Unlike json.Marshal
// it leaves comparators such as ">=" unescaped.
func (e Expression) Encode() ([]byte, error) {
	return e.MarshalJSON()
}

func marshalText(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (e *Expression) UnmarshalJSON(data []byte) error {
	parsed, err := ParseExpression(data)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseExpression decodes and validates a JSON condition array.
func ParseExpression(data []byte) (Expression, error) {
	var elements []Element
	if err := json.Unmarshal(data, &elements); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return Expression{}, fmt.Errorf("%w: %v", ErrMalformedCondition, err)
		}
		return Expression{}, err
	}
	return NewExpression(elements...)
}
