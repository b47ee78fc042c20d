package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"enact/internal/app/conditions"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func param(typ, name string) conditions.AbiParam {
	return conditions.AbiParam{InternalType: typ, Name: name, Type: typ}
}

func viewFunction(name string, inputs []conditions.AbiParam, output string) conditions.FunctionAbi {
	return conditions.FunctionAbi{
		Inputs:          inputs,
		Name:            name,
		Outputs:         []conditions.AbiParam{param(output, "")},
		StateMutability: "view",
		Type:            "function",
	}
}

// standardMethods covers predicates that name a standard contract type
// instead of carrying their own ABI.
var standardMethods = map[string]map[string]conditions.FunctionAbi{
	"ERC20": {
		"balanceOf": viewFunction("balanceOf", []conditions.AbiParam{param("address", "account")}, "uint256"),
	},
	"ERC721": {
		"ownerOf":   viewFunction("ownerOf", []conditions.AbiParam{param("uint256", "tokenId")}, "address"),
		"balanceOf": viewFunction("balanceOf", []conditions.AbiParam{param("address", "owner")}, "uint256"),
	},
	"ERC1155": {
		"balanceOf": viewFunction("balanceOf", []conditions.AbiParam{param("address", "account"), param("uint256", "id")}, "uint256"),
	},
	"POAP": {
		"tokenURI":  viewFunction("tokenURI", nil, "string"),
		"balanceOf": viewFunction("balanceOf", []conditions.AbiParam{param("address", "owner")}, "uint256"),
	},
	"ProofOfHumanity": {
		"isRegistered": viewFunction("isRegistered", []conditions.AbiParam{param("address", "submissionID")}, "bool"),
	},
}

func methodAbi(p conditions.Predicate) (abi.ABI, error) {
	var fn conditions.FunctionAbi
	switch {
	case p.Abi != nil:
		fn = *p.Abi
	default:
		std, ok := standardMethods[p.StandardContractType][p.Method]
		if !ok {
			return abi.ABI{}, fmt.Errorf("%w: no abi for %s.%s", ErrUnsupportedPredicate, p.StandardContractType, p.Method)
		}
		fn = std
	}
	if fn.Inputs == nil {
		fn.Inputs = []conditions.AbiParam{}
	}

	doc, err := json.Marshal([]conditions.FunctionAbi{fn})
	if err != nil {
		return abi.ABI{}, err
	}
	parsed, err := abi.JSON(bytes.NewReader(doc))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %v", ErrUnsupportedPredicate, err)
	}
	if _, ok := parsed.Methods[p.Method]; !ok {
		return abi.ABI{}, fmt.Errorf("%w: abi has no method %s", ErrUnsupportedPredicate, p.Method)
	}
	return parsed, nil
}

// convertArg turns a textual parameter into the Go value the abi packer
// expects for typ. Arrays use the "[a,b,c]" literal form.
func convertArg(typ abi.Type, raw string) (interface{}, error) {
	switch typ.T {
	case abi.IntTy, abi.UintTy:
		n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		goType := typ.GetType()
		if goType == reflect.TypeOf(&big.Int{}) {
			return n, nil
		}
		if typ.T == abi.UintTy {
			if n.Sign() < 0 || !n.IsUint64() {
				return nil, fmt.Errorf("%q out of range for %s", raw, typ)
			}
			return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
		}
		if !n.IsInt64() {
			return nil, fmt.Errorf("%q out of range for %s", raw, typ)
		}
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%q is not an address", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("%q is not %d bytes", raw, typ.Size)
		}
		v := reflect.New(typ.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil
	case abi.ArrayTy, abi.SliceTy:
		items := splitList(raw)
		if typ.T == abi.ArrayTy && len(items) != typ.Size {
			return nil, fmt.Errorf("%s needs %d items, got %d", typ, typ.Size, len(items))
		}
		var v reflect.Value
		if typ.T == abi.ArrayTy {
			v = reflect.New(typ.GetType()).Elem()
		} else {
			v = reflect.MakeSlice(typ.GetType(), len(items), len(items))
		}
		for i, item := range items {
			elem, err := convertArg(*typ.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			v.Index(i).Set(reflect.ValueOf(elem))
		}
		return v.Interface(), nil
	}
	return nil, fmt.Errorf("%w: abi type %s", ErrUnsupportedPredicate, typ)
}

func splitList(raw string) []string {
	inner := strings.TrimSpace(raw)
	inner = strings.TrimSuffix(strings.TrimPrefix(inner, "["), "]")
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"`)
	}
	return parts
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case common.Address:
		return x.Hex()
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case []byte:
		return hexutil.Encode(x)
	case [32]byte:
		return hexutil.Encode(x[:])
	default:
		return fmt.Sprint(x)
	}
}

// callContract packs the predicate's call, runs it and returns the output
// selected by key (the first output when key is empty) as text.
func callContract(ctx context.Context, reader ChainReader, p conditions.Predicate, args []string, key string) (string, error) {
	contract, err := methodAbi(p)
	if err != nil {
		return "", err
	}
	method := contract.Methods[p.Method]
	if len(method.Inputs) != len(args) {
		return "", fmt.Errorf("%w: %s expects %d arguments, got %d", ErrUnsupportedPredicate, p.Method, len(method.Inputs), len(args))
	}

	values := make([]interface{}, len(args))
	for i, arg := range args {
		if values[i], err = convertArg(method.Inputs[i].Type, arg); err != nil {
			return "", fmt.Errorf("argument %d of %s: %w", i, p.Method, err)
		}
	}
	calldata, err := contract.Pack(p.Method, values...)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", p.Method, err)
	}

	output, err := reader.CallContract(ctx, common.HexToAddress(p.Target), calldata)
	if err != nil {
		return "", fmt.Errorf("%w: call %s: %v", ErrNetworkFailure, p.Method, err)
	}
	results, err := contract.Unpack(p.Method, output)
	if err != nil {
		return "", fmt.Errorf("unpack %s: %w", p.Method, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w: %s returns nothing", ErrUnsupportedPredicate, p.Method)
	}

	index := 0
	if key != "" {
		index = -1
		for i, out := range method.Outputs {
			if out.Name == key {
				index = i
			}
		}
		if index < 0 {
			return "", fmt.Errorf("%w: %s has no output %q", ErrUnsupportedPredicate, p.Method, key)
		}
	}
	return formatValue(results[index]), nil
}
