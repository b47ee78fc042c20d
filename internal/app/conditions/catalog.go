package conditions

import (
	"fmt"
	"slices"
)

const (
	ChainAmoy    = "amoy"
	ChainSepolia = "sepolia"

	// AnonAadhaarCapability names the structural AnonAadhaar proof verifier.
	AnonAadhaarCapability = "anon-aadhaar/v1"
	// ProofParam is the side-channel carrying a whole proof bundle as JSON.
	ProofParam = "proof"
)

// Template is a named, ready to use predicate.
type Template struct {
	Name      string
	Predicate Predicate
}

func (t Template) Kind() Kind    { return t.Predicate.Kind }
func (t Template) Chain() string { return t.Predicate.Chain }
func (t Template) Arity() int    { return len(t.Predicate.Parameters) }

// Catalog is a finite, static list of templates. It is read-only after construction.
type Catalog struct {
	templates []Template
	byName    map[string]int
}

func NewCatalog(templates ...Template) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(templates))}
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: template without a name", ErrMalformedCondition)
		}
		if _, exists := c.byName[t.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate template %q", ErrMalformedCondition, t.Name)
		}
		if err := t.Predicate.Validate(); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		c.byName[t.Name] = len(c.templates)
		c.templates = append(c.templates, Template{Name: t.Name, Predicate: t.Predicate.Clone()})
	}
	return c, nil
}

func (c *Catalog) Lookup(name string) (Predicate, error) {
	i, ok := c.byName[name]
	if !ok {
		return Predicate{}, fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
	}
	return c.templates[i].Predicate.Clone(), nil
}

func (c *Catalog) Names() []string {
	names := make([]string, len(c.templates))
	for i, t := range c.templates {
		names[i] = t.Name
	}
	return names
}

func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	for i, t := range c.templates {
		out[i] = Template{Name: t.Name, Predicate: t.Predicate.Clone()}
	}
	return out
}

func (c *Catalog) Contains(name string) bool {
	return slices.Contains(c.Names(), name)
}

func anonAadhaarVerifierAbi() *FunctionAbi {
	uint256 := func(name string) AbiParam {
		return AbiParam{InternalType: "uint256", Name: name, Type: "uint256"}
	}
	return &FunctionAbi{
		Inputs: []AbiParam{
			uint256("nullifierSeed"),
			uint256("nullifier"),
			uint256("timestamp"),
			uint256("signal"),
			{InternalType: "uint256[4]", Name: "revealArray", Type: "uint256[4]"},
			{InternalType: "uint256[8]", Name: "groth16Proof", Type: "uint256[8]"},
		},
		Name:            "verifyAnonAadhaarProof",
		Outputs:         []AbiParam{{InternalType: "bool", Name: "", Type: "bool"}},
		StateMutability: "view",
		Type:            "function",
	}
}

// DefaultTemplates is the deployment's predicate list, in prompt order.
func DefaultTemplates() []Template {
	return []Template{
		{
			Name: "Proof of Humanity",
			Predicate: Predicate{
				Kind:                 Registry,
				Chain:                ChainAmoy,
				Target:               "0xC5E9dDebb09Cd64DfaCab4011A0D5cEDaf7c9BDb",
				StandardContractType: standardProofOfHumanity,
				Method:               "isRegistered",
				Parameters:           []string{UserAddress},
				Test:                 ReturnValueTest{Comparator: Equal, Value: "true"},
			},
		},
		{
			Name: "NFT Owner",
			Predicate: Predicate{
				Kind:                 ContractState,
				Chain:                ChainAmoy,
				Target:               "0xCd2AE5e5371A6f667726A76B36D5CC161a5fB3e6",
				StandardContractType: "ERC721",
				Method:               "ownerOf",
				Parameters:           []string{"1"},
				Test:                 ReturnValueTest{Comparator: Equal, Value: UserAddress},
			},
		},
		{
			Name: "Burning Man 2021 POAP",
			Predicate: Predicate{
				Kind:                 ContractState,
				Chain:                ChainAmoy,
				Target:               "0x22C1f6050E56d2876009903609a2cC3fEf83B415",
				StandardContractType: "POAP",
				Method:               "tokenURI",
				Parameters:           []string{},
				Test:                 ReturnValueTest{Comparator: Contains, Value: "Burning Man 2021"},
			},
		},
		{
			Name: "Timelock",
			Predicate: Predicate{
				Kind:                 Timestamp,
				Chain:                ChainAmoy,
				StandardContractType: standardTimestamp,
				Method:               MethodGetBlockByNumber,
				Parameters:           []string{"latest"},
				Test:                 ReturnValueTest{Comparator: GreaterOrEqual, Value: "1733600192"},
			},
		},
		{
			Name: "Token Holder",
			Predicate: Predicate{
				Kind:       Balance,
				Chain:      ChainAmoy,
				Method:     MethodGetBalance,
				Parameters: []string{UserAddress},
				Test:       ReturnValueTest{Comparator: Greater, Value: "0"},
			},
		},
		{
			Name: "AnonAadhaar",
			Predicate: Predicate{
				Kind:   ProofVerification,
				Chain:  ChainSepolia,
				Target: "0x6bE8Cec7a06BA19c39ef328e8c8940cEfeF7E281",
				Method: "verifyAnonAadhaarProof",
				Parameters: []string{
					SideChannelPlaceholder("nullifierSeed"),
					SideChannelPlaceholder("nullifier"),
					SideChannelPlaceholder("timestamp"),
					"1",
					SideChannelPlaceholder("revealArray"),
					SideChannelPlaceholder("groth16Proof"),
				},
				Abi: anonAadhaarVerifierAbi(),
				// the deployed condition compares against "false"; kept as published
				Test: ReturnValueTest{Key: "", Comparator: Equal, Value: "false"},
			},
		},
		{
			Name: "AnonAadhaar Lit Action",
			Predicate: Predicate{
				Kind:       LogicCode,
				Chain:      ChainSepolia,
				Method:     "verifyAnonAadhaarProof",
				Parameters: []string{SideChannelPlaceholder(ProofParam)},
				Capability: AnonAadhaarCapability,
				Test:       ReturnValueTest{Comparator: Equal, Value: "true"},
			},
		},
	}
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTemplates()...)
	if err != nil {
		panic(fmt.Sprintf("default catalog is invalid: %v", err))
	}
	return c
}
