package workers

import "enact/pkg/rabbitmq"

const (
	anchorWorkerName   = "AttestationAnchorWorker"
	verifierWorkerName = "ProofVerifierWorker"

	AnchorConsumerAlias   rabbitmq.ConsumerAlias = "AttestationEventsConsumer"
	VerifierConsumerAlias rabbitmq.ConsumerAlias = "ProofVerificationConsumer"

	EventsPublisherAlias        rabbitmq.PublisherAlias = "AttestationEventsPublisher"
	AnchorResultsPublisherAlias rabbitmq.PublisherAlias = "AnchorResultsPublisher"
	AnchorFailurePublisherAlias rabbitmq.PublisherAlias = "AnchorFailurePublisher"
	VerdictPublisherAlias       rabbitmq.PublisherAlias = "ProofVerdictPublisher"
	LogsPublisherAlias          rabbitmq.PublisherAlias = "LogsPublisher"
)
