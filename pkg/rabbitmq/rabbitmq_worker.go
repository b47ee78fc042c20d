package rabbitmq

// WorkerService is a long running background service started by the application runtime.
type WorkerService interface {
	GetServiceName() string
	StartService()
}
