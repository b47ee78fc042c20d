package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	ResultTrue  = "true"
	ResultFalse = "false"
)

var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrBadArguments      = errors.New("bad capability arguments")
)

// Capability is a verifier a LogicCode predicate can name. Invoke receives
// the predicate's resolved parameters in order and returns the value the
// predicate's return test compares against.
type Capability interface {
	ID() string
	Invoke(ctx context.Context, args []string) (string, error)
}

// Registry maps capability ids to implementations. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{caps: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a capability.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.ID()] = c
}

func (r *Registry) Lookup(id string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}
	return c, nil
}

func (r *Registry) Invoke(ctx context.Context, id string, args []string) (string, error) {
	c, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Invoke(ctx, args)
}

// VerifyProof runs capability id over a proof document. A proof given as a
// JSON string is passed unquoted so encoded proof packages can travel as strings.
func (r *Registry) VerifyProof(ctx context.Context, id string, proof json.RawMessage) (bool, error) {
	arg := string(proof)
	var quoted string
	if err := json.Unmarshal(proof, &quoted); err == nil {
		arg = quoted
	}
	result, err := r.Invoke(ctx, id, []string{arg})
	if err != nil {
		return false, err
	}
	return result == ResultTrue, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.caps))
	for id := range r.caps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func boolResult(ok bool) string {
	if ok {
		return ResultTrue
	}
	return ResultFalse
}
