package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"enact/internal/app/attestation"
	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/internal/app/config"
	"enact/internal/app/database"
	"enact/internal/app/gating"
	"enact/internal/app/network"
	"enact/internal/app/proof"
	"enact/internal/app/wallet"
	"enact/pkg/logger"
	"enact/pkg/utilities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const (
	configEnv     = "ENACT_CONFIG"
	privateKeyEnv = "PRIVATE_KEY"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := utilities.LoadEnvFiles(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: enact <command> [options]

Commands:
  catalog                                             list predicate templates
  create-schema       -definition "uint8 age, string name" [-resolver 0x..] [-revocable]
  resolve-schema      <uid>
  create-attestation  -schema <uid> -data age=30,name=alice [-recipient 0x..] [-gated] [-conditions "NFT Owner|or|Timelock"]
  resolve-attestation <uid> [-proof bundle.json] [-caller 0x..]
  revoke              <uid> -reason "..."
  verify-proof        -proof bundle.json [-capability %s]

Environment:
  ENACT_CONFIG   config file with database and chain settings
  PRIVATE_KEY    attester key, an ephemeral one is generated when unset
`, conditions.AnonAadhaarCapability)
}

type app struct {
	registry     attestation.Registry
	gate         *gating.Orchestrator
	catalog      *conditions.Catalog
	capabilities *capability.Registry
	in           io.Reader
	out          io.Writer
	prompt       io.Writer
	log          *logger.Logger
}

func loadConfig() (config.EnactConfig, error) {
	path := os.Getenv(configEnv)
	if path == "" {
		return config.EnactConfigJson{}.ConvertToDomain(), nil
	}
	return utilities.ReadConfig[config.EnactConfigJson, config.EnactConfig](path)
}

func newApp(ctx context.Context, in io.Reader, out, errOut io.Writer) (*app, error) {
	log := logger.New().WithOutput(errOut).WithLevel(zerolog.WarnLevel)

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.DatabaseConf.Migrate = true
	db, err := database.Open(cfg.DatabaseConf, log)
	if err != nil {
		return nil, err
	}

	var w *wallet.Wallet
	if key := os.Getenv(privateKeyEnv); key != "" {
		w, err = wallet.FromHex(key)
	} else {
		log.Warnf("%s is not set, signing with an ephemeral key", privateKeyEnv)
		w, err = wallet.Generate()
	}
	if err != nil {
		return nil, err
	}
	registry := attestation.NewGormRegistry(db, w, attestation.WithLogger(log))

	capabilities := capability.NewRegistry(capability.NewAnonAadhaar(proof.NewVerifier()))
	vks, err := cfg.LoadVerifyingKeys()
	if err != nil {
		return nil, err
	}
	if err := capability.RegisterGroth16Keys(capabilities, vks, log); err != nil {
		return nil, err
	}

	chains, err := network.DialChains(ctx, cfg.ChainRpcUrls())
	if err != nil {
		return nil, err
	}
	keys := network.NewGormKeyStore(db, func() int64 { return time.Now().Unix() })
	net := network.NewLocalNetwork(keys, network.NewEvaluator(chains, capabilities, log), log)

	return &app{
		registry:     registry,
		gate:         gating.New(registry, net, log),
		catalog:      conditions.DefaultCatalog(),
		capabilities: capabilities,
		in:           in,
		out:          out,
		prompt:       errOut,
		log:          log,
	}, nil
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	a, err := newApp(ctx, in, out, errOut)
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "catalog":
		return a.printJSON(a.catalog.Templates())
	case "create-schema":
		return a.createSchema(ctx, rest)
	case "resolve-schema":
		return a.resolveSchema(ctx, rest)
	case "create-attestation":
		return a.createAttestation(ctx, rest)
	case "resolve-attestation":
		return a.resolveAttestation(ctx, rest)
	case "revoke":
		return a.revoke(ctx, rest)
	case "verify-proof":
		return a.verifyProof(ctx, rest)
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func positional(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", fmt.Errorf("%w: %s needs a uid", errUsage, fs.Name())
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", fmt.Errorf("%w: %v", errUsage, err)
	}
	return args[0], nil
}

func (a *app) createSchema(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-schema", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	definition := fs.String("definition", "", "comma separated \"type name\" fields")
	resolver := fs.String("resolver", "", "resolver contract address")
	revocable := fs.Bool("revocable", false, "allow revocation")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	schema, err := a.registry.CreateSchema(ctx, attestation.SchemaRequest{Definition: *definition, Resolver: *resolver, Revocable: *revocable})
	if err != nil {
		return err
	}
	return a.printJSON(schema)
}

func (a *app) resolveSchema(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve-schema", flag.ContinueOnError)
	uid, err := positional(fs, args)
	if err != nil {
		return err
	}
	schema, err := a.registry.GetSchema(ctx, uid)
	if err != nil {
		return err
	}
	return a.printJSON(schema)
}

// parseData reads "name=value" pairs separated by commas.
func parseData(raw string) (map[string]string, error) {
	data := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return data, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: data entry %q is not name=value", errUsage, pair)
		}
		data[name] = strings.TrimSpace(value)
	}
	return data, nil
}

func (a *app) createAttestation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-attestation", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	schemaUID := fs.String("schema", "", "schema uid")
	recipient := fs.String("recipient", "", "recipient address")
	rawData := fs.String("data", "", "name=value pairs")
	gated := fs.Bool("gated", false, "encrypt the data behind access conditions")
	script := fs.String("conditions", "", "'|' separated predicate names and combinators; prompts when empty")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	data, err := parseData(*rawData)
	if err != nil {
		return err
	}

	if !*gated && *script == "" {
		created, err := a.registry.CreateAttestation(ctx, attestation.AttestationRequest{SchemaUID: *schemaUID, Recipient: *recipient, Data: data})
		if err != nil {
			return err
		}
		return a.printJSON(created)
	}

	var source conditions.Source = conditions.ParseScript(*script)
	if *script == "" {
		source = conditions.NewPromptSource(a.in, a.prompt)
	}
	expr, err := conditions.Compose(ctx, a.catalog, source, conditions.WithLogger(a.log))
	if err != nil {
		return err
	}

	created, err := a.gate.Create(ctx, gating.CreateRequest{SchemaUID: *schemaUID, Recipient: *recipient, Data: data, Conditions: expr})
	if err != nil {
		return err
	}
	return a.printJSON(created)
}

func readBundle(path string) (*proof.ProofBundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return proof.ParseBundle(raw)
}

func (a *app) resolveAttestation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve-attestation", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	proofPath := fs.String("proof", "", "AnonAadhaar proof bundle file")
	caller := fs.String("caller", "", "address used for :userAddress")
	uid, err := positional(fs, args)
	if err != nil {
		return err
	}

	if *caller != "" {
		addr, err := parseAddress(*caller)
		if err != nil {
			return err
		}
		ctx = network.WithCaller(ctx, addr)
	}

	var source gating.ProofSource
	if *proofPath != "" {
		path := *proofPath
		source = gating.ProofSourceFunc(func(context.Context) (*proof.ProofBundle, error) {
			return readBundle(path)
		})
	}

	resolved, err := a.gate.Resolve(ctx, uid, source)
	if err != nil {
		return err
	}
	return a.printJSON(resolved)
}

func (a *app) revoke(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	reason := fs.String("reason", "", "revocation reason")
	uid, err := positional(fs, args)
	if err != nil {
		return err
	}

	revocation, err := a.gate.Revoke(ctx, uid, *reason)
	if err != nil {
		return err
	}
	return a.printJSON(revocation)
}

func (a *app) verifyProof(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-proof", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	proofPath := fs.String("proof", "", "proof file")
	capabilityID := fs.String("capability", conditions.AnonAadhaarCapability, "verifier capability")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *proofPath == "" {
		return fmt.Errorf("%w: -proof is required", errUsage)
	}

	raw, err := os.ReadFile(*proofPath)
	if err != nil {
		return err
	}
	valid, err := a.capabilities.VerifyProof(ctx, *capabilityID, raw)
	if err != nil {
		return err
	}
	return a.printJSON(map[string]bool{"isValid": valid})
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", errUsage, raw)
	}
	return common.HexToAddress(raw), nil
}
