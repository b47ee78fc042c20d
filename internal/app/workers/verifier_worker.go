package workers

import (
	"context"
	"encoding/json"
	"errors"

	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	dtocommon "enact/pkg/dto_common"
	"enact/pkg/logger"
	"enact/pkg/rabbitmq"
	reasoncodes "enact/pkg/reason_codes"
	"enact/pkg/utilities"

	amqp "github.com/rabbitmq/amqp091-go"
)

// VerifierWorker answers proof verification requests from a queue with a
// pass/fail verdict.
type VerifierWorker struct {
	capabilities *capability.Registry
	consumer     rabbitmq.IRabbitmqConsumer
	verdicts     rabbitmq.IRabbitmqPublisher
	log          *logger.Logger
}

func NewVerifierWorker(
	capabilities *capability.Registry,
	consumer rabbitmq.IRabbitmqConsumer,
	verdicts rabbitmq.IRabbitmqPublisher,
	log *logger.Logger,
) *VerifierWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &VerifierWorker{capabilities: capabilities, consumer: consumer, verdicts: verdicts, log: log}
}

func (vw *VerifierWorker) GetServiceName() string {
	return verifierWorkerName
}

func (vw *VerifierWorker) StartService() {
	vw.consumer.StartConsuming(vw.HandleDelivery)
}

func (vw *VerifierWorker) HandleDelivery(d amqp.Delivery) {
	var req dtocommon.ProofVerificationRequestDto
	if err := json.Unmarshal(d.Body, &req); err != nil {
		vw.publish(dtocommon.NewVerificationFailureFactory("").CreateErrorDto(err, reasoncodes.ErrUnmarshal))
		return
	}
	vw.publish(Verdict(context.Background(), vw.capabilities, req))
}

func (vw *VerifierWorker) publish(verdict utilities.Serializable) {
	if err := vw.verdicts.Publish(verdict); err != nil {
		vw.log.Error(err, "Could not publish proof verdict")
	}
}

// Verdict judges one request. An empty capability means the AnonAadhaar verifier.
func Verdict(ctx context.Context, capabilities *capability.Registry, req dtocommon.ProofVerificationRequestDto) dtocommon.ProofVerdictDto {
	id := req.Capability
	if id == "" {
		id = conditions.AnonAadhaarCapability
	}

	failures := dtocommon.NewVerificationFailureFactory(req.RequestId)
	valid, err := capabilities.VerifyProof(ctx, id, req.Proof)
	switch {
	case errors.Is(err, capability.ErrUnknownCapability):
		return failures.CreateErrorDto(err, reasoncodes.ErrNotFound).(dtocommon.ProofVerdictDto)
	case err != nil:
		return failures.CreateErrorDto(err, reasoncodes.ErrInternal).(dtocommon.ProofVerdictDto)
	case !valid:
		return failures.CreateInfoDto(reasoncodes.ErrProofRejected).(dtocommon.ProofVerdictDto)
	}
	return dtocommon.ProofVerdictDto{RequestId: req.RequestId, IsValid: true}
}
