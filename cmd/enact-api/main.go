package main

import (
	"context"
	"time"

	"enact/internal/app/attestation"
	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/internal/app/config"
	"enact/internal/app/database"
	"enact/internal/app/external"
	"enact/internal/app/gating"
	"enact/internal/app/handlers"
	"enact/internal/app/network"
	"enact/internal/app/outbox"
	"enact/internal/app/proof"
	"enact/internal/app/wallet"
	"enact/internal/app/workers"
	appbuilder "enact/pkg/app_builder"
	"enact/pkg/logger"
	"enact/pkg/rabbitmq"
	"enact/pkg/rest"
	"enact/pkg/utilities"

	"github.com/gagliardetto/solana-go/rpc"
)

const (
	serviceName = "enact-api"
	dialTimeout = 15 * time.Second
)

// @title           Enact API
// @version         1.0
// @description     Gated attestations over a threshold encryption network
// @host localhost:9000
// @BasePath /v1
func main() {
	var (
		handler         *handlers.Handler
		capabilities    *capability.Registry
		outboxRepo      outbox.OutboxRepository
		services        []rabbitmq.WorkerService
		solanaAnchorCfg *external.SharedSolanaConfig
	)

	builder := appbuilder.New[config.EnactConfigJson, config.EnactConfig]().
		InitLogger(logger.GlobalLoggerConfig{Args: []logger.LoggerArg{
			{Key: "application", Value: serviceName},
			{Key: "version", Value: "1.0.0"},
		}}).
		ResolveEnvironment().
		LoadConfig(utilities.GetenvDefault("ENACT_CONFIG", "config.json"))

	builder.WithOption(func(a *appbuilder.AppBuilder[config.EnactConfigJson, config.EnactConfig]) {
		// ----- DATABASE -----
		db, err := database.Open(a.Config.DatabaseConf, a.Logger)
		if err != nil {
			a.Logger.Panic(err, "Could not open database")
		}

		// ----- ATTESTER WALLET -----
		w, err := wallet.FromHex(utilities.MustEnv("PRIVATE_KEY"))
		if err != nil {
			a.Logger.Panic(err, "Invalid PRIVATE_KEY")
		}
		registry := attestation.NewGormRegistry(db, w, attestation.WithLogger(a.Logger))

		// ----- CAPABILITIES -----
		capabilities = capability.NewRegistry(capability.NewAnonAadhaar(proof.NewVerifier()))
		vks, err := a.Config.LoadVerifyingKeys()
		if err != nil {
			a.Logger.Panic(err, "Could not load circuit verifying keys")
		}
		if err := capability.RegisterGroth16Keys(capabilities, vks, a.Logger); err != nil {
			a.Logger.Panic(err, "Could not register groth16 circuits")
		}
		a.Logger.Infof("Registered capabilities %v", capabilities.IDs())

		// ----- LOCAL ENCRYPTION NETWORK -----
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		chains, err := network.DialChains(ctx, a.Config.ChainRpcUrls())
		if err != nil {
			a.Logger.Panic(err, "Could not reach configured chains")
		}
		evaluator := network.NewEvaluator(chains, capabilities, a.Logger)
		keys := network.NewGormKeyStore(db, func() int64 { return time.Now().Unix() })
		net := network.NewLocalNetwork(keys, evaluator, a.Logger)

		handler = handlers.NewHandler(registry, gating.New(registry, net, a.Logger), conditions.DefaultCatalog(), capabilities, a.Logger)
		outboxRepo = outbox.NewRepo(db)

		// ----- SOLANA ANCHORING -----
		if a.Config.SolanaConf.Enabled {
			solanaAnchorCfg, err = external.LoadSolanaKeys(a.Logger)
			if err != nil {
				a.Logger.Panic(err, "Unable to load keypairs for solana")
			}
			if err := solanaAnchorCfg.ValidateProgramExecutable(ctx, rpc.New(a.Config.SolanaConf.RpcUrl)); err != nil {
				a.Logger.Panic(err, "Anchor program is not deployed")
			}
		}
	})

	builder.
		// ----- RABBITMQ -----
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *appbuilder.AppBuilder[config.EnactConfigJson, config.EnactConfig]) {
			// ----- RABBITMQ LOGGING SINK -----
			logSink := rabbitmq.CreateRabbitmqLoggerSink(serviceName, rabbitmq.GetPublisher(workers.LogsPublisherAlias))
			logger.AddSinkToLoggerInstance(a.Logger, logSink)

			services = append(services, outbox.NewOutboxWorker(
				rabbitmq.GetPublisher(workers.EventsPublisherAlias),
				outboxRepo,
				a.Config.OutboxConf.Schedule,
				a.Logger,
			))
			services = append(services, workers.NewVerifierWorker(
				capabilities,
				rabbitmq.GetConsumer(workers.VerifierConsumerAlias),
				rabbitmq.GetPublisher(workers.VerdictPublisherAlias),
				a.Logger,
			))
			if solanaAnchorCfg != nil {
				anchor := external.NewSolanaAnchor(a.Config.SolanaConf.RpcUrl, solanaAnchorCfg, a.Logger)
				services = append(services, workers.NewAnchorWorker(
					anchor,
					rabbitmq.GetConsumer(workers.AnchorConsumerAlias),
					rabbitmq.GetPublisher(workers.AnchorResultsPublisherAlias),
					rabbitmq.GetPublisher(workers.AnchorFailurePublisherAlias),
					a.Logger,
				))
			}
		}).
		WithOption(func(a *appbuilder.AppBuilder[config.EnactConfigJson, config.EnactConfig]) {
			a.AddWorkerServices(services...)
		}).
		AddGinMiddleware(
			rest.NewMiddleware(rest.AllGroups, rest.CORSMiddleware()),
			rest.NewMiddleware("v1", handlers.CallerMiddleware()),
		).
		WithOption(func(a *appbuilder.AppBuilder[config.EnactConfigJson, config.EnactConfig]) {
			a.AddGinRoutes(handler.Routes()...)
		}).
		AddSwagger().
		InitGinRouter().
		Build().
		Start()
}
