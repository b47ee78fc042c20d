package workers

import (
	"context"
	"encoding/json"

	"enact/internal/app/external"
	dtocommon "enact/pkg/dto_common"
	"enact/pkg/logger"
	"enact/pkg/rabbitmq"
	reasoncodes "enact/pkg/reason_codes"
	"enact/pkg/utilities"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AnchorWorker writes a digest of every attestation lifecycle event to Solana.
type AnchorWorker struct {
	anchor   external.Anchor
	consumer rabbitmq.IRabbitmqConsumer
	results  rabbitmq.IRabbitmqPublisher
	failures rabbitmq.IRabbitmqPublisher
	log      *logger.Logger
}

func NewAnchorWorker(
	anchor external.Anchor,
	consumer rabbitmq.IRabbitmqConsumer,
	results, failures rabbitmq.IRabbitmqPublisher,
	log *logger.Logger,
) *AnchorWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AnchorWorker{anchor: anchor, consumer: consumer, results: results, failures: failures, log: log}
}

func (aw *AnchorWorker) GetServiceName() string {
	return anchorWorkerName
}

func (aw *AnchorWorker) StartService() {
	aw.consumer.StartConsuming(aw.HandleDelivery)
}

func (aw *AnchorWorker) HandleDelivery(d amqp.Delivery) {
	var event dtocommon.AttestationEventDto
	responseFactory := dtocommon.NewAnchorFailureFactory("", d.Body)

	if err := json.Unmarshal(d.Body, &event); err != nil {
		aw.publishFailure(responseFactory.CreateErrorDto(err, reasoncodes.ErrUnmarshal))
		return
	}
	responseFactory = dtocommon.NewAnchorFailureFactory(event.EventId, d.Body)

	record, err := external.NewAnchorRecord(event)
	if err != nil {
		aw.log.Errorf(err, "Event %s cannot be anchored", event.EventId)
		aw.publishFailure(responseFactory.CreateErrorDto(err, reasoncodes.ErrUnmarshal))
		return
	}

	receipt, err := aw.anchor.Anchor(context.Background(), record)
	if err != nil {
		aw.log.Errorf(err, "Unable to anchor attestation %s", event.AttestationUid)
		aw.publishFailure(responseFactory.CreateErrorDto(err, reasoncodes.ErrSolana))
		return
	}

	result := dtocommon.AnchorResultDto{
		EventId:        event.EventId,
		AttestationUid: event.AttestationUid,
		Signature:      receipt.Signature.String(),
		AccountId:      receipt.Account.String(),
	}
	if err := aw.results.Publish(result); err != nil {
		aw.log.Errorf(err, "Could not publish anchor result of %s", event.EventId)
		return
	}
	aw.log.Infof("Anchored %s for %s. Signature: %s, Account: %s", event.EventType, result.AttestationUid, result.Signature, result.AccountId)
}

func (aw *AnchorWorker) publishFailure(dto utilities.Serializable) {
	if err := aw.failures.Publish(dto); err != nil {
		aw.log.Error(err, "Could not publish anchor failure")
	}
}
