package appbuilder

import (
	"fmt"

	"enact/pkg/logger"
	"enact/pkg/rabbitmq"
	"enact/pkg/rest"
	"enact/pkg/utilities"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type AppConfig interface {
	GetLoggerConfig() logger.LoggerConfig
	GetRabbitmqConfig() rabbitmq.RabbitmqConfig
	GetRestApiPort() uint16
}

type AppBuilder[T utilities.JsonConfigObj[U], U AppConfig] struct {
	Logger         *logger.Logger
	Config         U
	Conn           *amqp.Connection
	workerServices []rabbitmq.WorkerService
	middlewares    []rest.Middleware
	routes         []rest.Route
	engine         *gin.Engine
}

func New[T utilities.JsonConfigObj[U], U AppConfig]() *AppBuilder[T, U] {
	return &AppBuilder[T, U]{}
}

func (a *AppBuilder[T, U]) InitLogger(loggerArgs logger.GlobalLoggerConfig) *AppBuilder[T, U] {
	logger.InitDefaultLogger(loggerArgs)
	a.Logger = logger.Default()
	a.Logger.Info("Logger initialized")

	return a
}

// ResolveEnvironment loads dotenv files into the process environment.
func (a *AppBuilder[T, U]) ResolveEnvironment(files ...string) *AppBuilder[T, U] {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := utilities.LoadEnvFiles(files...); err != nil {
		a.Logger.Panicf(err, "Failed to load environment files %v", files)
	}
	return a
}

func (a *AppBuilder[T, U]) LoadConfig(filePath string) *AppBuilder[T, U] {
	a.Logger.Infof("Preparing to load config from %s ...", filePath)
	jsonConfig, err := utilities.ReadConfig[T, U](filePath)
	if err != nil {
		a.Logger.Panic(err, "Failed to load config")
	}

	a.Config = jsonConfig
	a.Logger.Info("Config successfully loaded.")
	return a
}

// WithOption runs an arbitrary setup step against the builder.
func (a *AppBuilder[T, U]) WithOption(option func(*AppBuilder[T, U])) *AppBuilder[T, U] {
	option(a)
	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqConnection() *AppBuilder[T, U] {
	a.Logger.Info("Preparing to connect to Rabbitmq server...")
	conn, err := rabbitmq.ConnectToRabbitmq(a.Config.GetRabbitmqConfig())
	if err != nil {
		a.Logger.Panic(err, "Could not connect to Rabbitmq server")
	}

	a.Conn = conn
	a.Logger.Info("Connection with Rabbitmq server established")

	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqRegistries() *AppBuilder[T, U] {
	a.Logger.Info("Initializing Rabbitmq registries from config")
	rabbitmqConf := a.Config.GetRabbitmqConfig()

	rabbitmq.InitializeConsumerRegistry(a.Conn, rabbitmqConf.ConsumersConfig)
	rabbitmq.InitializePublisherRegistry(a.Conn, rabbitmqConf.PublishersConfig)
	a.Logger.Info("Successfully initialized Rabbitmq registries from config")

	return a
}

func (a *AppBuilder[T, U]) AddWorkerServices(workerServices ...rabbitmq.WorkerService) *AppBuilder[T, U] {
	a.Logger.Info("Adding Worker Services to Application...")
	a.workerServices = append(a.workerServices, workerServices...)
	return a
}

func (a *AppBuilder[T, U]) AddGinMiddleware(middlewares ...rest.Middleware) *AppBuilder[T, U] {
	a.Logger.Info("Adding Gin middlewares to Application...")
	a.middlewares = append(a.middlewares, middlewares...)
	return a
}

func (a *AppBuilder[T, U]) AddGinRoutes(routes ...rest.Route) *AppBuilder[T, U] {
	a.Logger.Info("Adding Gin REST API routes to Application...")
	a.routes = append(a.routes, routes...)
	return a
}

func (a *AppBuilder[T, U]) AddSwagger() *AppBuilder[T, U] {
	a.Logger.Info("Adding SwaggerUI...")
	a.routes = append(a.routes, rest.NewRoute(
		rest.GET,
		"swagger",
		"*any",
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	))

	return a
}

func (a *AppBuilder[T, U]) InitGinRouter() *AppBuilder[T, U] {
	a.Logger.Info("Initializing Gin Router...")
	router := gin.Default()

	a.Logger.Info("Registering REST API routes...")
	rest.RegisterRoutes(router, a.Logger, a.middlewares, a.routes)

	a.engine = router
	a.Logger.Info("Successfully registered REST API routes.")
	return a
}

func (a *AppBuilder[T, U]) Build() ApplicationInterface {
	return &Application{
		Logger:         a.Logger,
		Addr:           fmt.Sprintf("0.0.0.0:%d", a.Config.GetRestApiPort()),
		Conn:           a.Conn,
		WorkerServices: a.workerServices,
		Engine:         a.engine,
	}
}
