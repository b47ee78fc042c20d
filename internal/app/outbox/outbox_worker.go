package outbox

import (
	"context"

	"enact/pkg/logger"
	"enact/pkg/rabbitmq"

	"github.com/robfig/cron"
)

const (
	outboxWorkerName = "OutboxCronWorker"
	DefaultSchedule  = "@every 1m"
	batchSize        = 100
)

type rawPayload []byte

func (rp rawPayload) Serialize() ([]byte, error) { return rp, nil }

type OutboxWorker struct {
	publisher  rabbitmq.IRabbitmqPublisher
	repository OutboxRepository
	cron       *cron.Cron
	schedule   string
	log        *logger.Logger
}

func NewOutboxWorker(publisher rabbitmq.IRabbitmqPublisher, repository OutboxRepository, schedule string, log *logger.Logger) *OutboxWorker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OutboxWorker{
		publisher:  publisher,
		repository: repository,
		cron:       cron.New(),
		schedule:   schedule,
		log:        log,
	}
}

func (ow *OutboxWorker) GetServiceName() string {
	return outboxWorkerName
}

func (ow *OutboxWorker) StartService() {
	err := ow.cron.AddFunc(ow.schedule, func() { ow.ProcessOutboxEvents(context.Background()) })
	if err != nil {
		ow.log.Errorf(err, "Could not add function to %s", outboxWorkerName)
		return
	}

	ow.cron.Start()
}

func (ow *OutboxWorker) Stop() {
	ow.cron.Stop()
}

// ProcessOutboxEvents publishes one batch and returns how many were published.
func (ow *OutboxWorker) ProcessOutboxEvents(ctx context.Context) int {
	events, err := ow.repository.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		ow.log.Error(err, "Could not read events from database")
		return 0
	}

	published := 0
	for _, e := range events {
		if err := ow.publisher.Publish(rawPayload(e.Payload)); err != nil {
			ow.log.Errorf(err, "Can't publish event %s to queue", e.EventId)
			if err := ow.repository.UpdateRetryValue(ctx, e.EventId); err != nil {
				ow.log.Errorf(err, "Could not update retry count of event %s", e.EventId)
			}
			continue
		}
		if err := ow.repository.MarkEventAsProcessed(ctx, e.EventId); err != nil {
			ow.log.Errorf(err, "Could not mark event %s as processed", e.EventId)
			continue
		}
		published++
	}
	if published > 0 {
		ow.log.Infof("%s published %d events", outboxWorkerName, published)
	}
	return published
}
