package conditions

import (
	"fmt"
	"strings"
)

const (
	SideChannelPrefix = ":litParam:"
	UserAddress       = ":userAddress"

	MethodGetBalance       = "eth_getBalance"
	MethodGetBlockByNumber = "eth_getBlockByNumber"
)

type Namespace int

const (
	Literal Namespace = iota
	// Identity placeholders are resolved by the network from the unlock request.
	Identity
	// SideChannel placeholders are resolved only from supplied parameters.
	SideChannel
)

type ParamRef struct {
	Namespace Namespace
	Name      string
	Raw       string
}

func ParseParam(raw string) (ParamRef, error) {
	switch {
	case strings.HasPrefix(raw, SideChannelPrefix):
		name := strings.TrimPrefix(raw, SideChannelPrefix)
		if name == "" || strings.ContainsAny(name, ": ") {
			return ParamRef{}, fmt.Errorf("%w: bad side-channel placeholder %q", ErrMalformedCondition, raw)
		}
		return ParamRef{Namespace: SideChannel, Name: name, Raw: raw}, nil
	case strings.HasPrefix(raw, ":"):
		name := strings.TrimPrefix(raw, ":")
		if name == "" {
			return ParamRef{}, fmt.Errorf("%w: empty identity placeholder", ErrMalformedCondition)
		}
		return ParamRef{Namespace: Identity, Name: name, Raw: raw}, nil
	default:
		return ParamRef{Namespace: Literal, Name: raw, Raw: raw}, nil
	}
}

func SideChannelPlaceholder(name string) string {
	return SideChannelPrefix + name
}
