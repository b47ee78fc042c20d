package outbox

import (
	"context"
	"errors"
	"fmt"

	"enact/internal/app/model"
	dtocommon "enact/pkg/dto_common"

	"gorm.io/gorm"
)

const maxRetries = 5

type OutboxRepository interface {
	GetEvent(ctx context.Context, eventId string) (model.OutboxEvent, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventId string) error
	UpdateRetryValue(ctx context.Context, eventId string) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

// InsertEvent stores an event using the caller's transaction, so the event
// exists if and only if the registry write it describes was committed.
func InsertEvent(tx *gorm.DB, event dtocommon.AttestationEventDto) error {
	payload, err := event.Serialize()
	if err != nil {
		return fmt.Errorf("serialize outbox event: %w", err)
	}
	return tx.Create(&model.OutboxEvent{
		EventId:        event.EventId,
		EventType:      string(event.EventType),
		AttestationUid: event.AttestationUid,
		Payload:        string(payload),
		CreatedAt:      event.Timestamp,
	}).Error
}

func (or *outboxRepository) GetEvent(ctx context.Context, eventId string) (model.OutboxEvent, error) {
	var event model.OutboxEvent
	result := or.db.WithContext(ctx).Unscoped().First(&event, "event_id = ?", eventId)
	return event, result.Error
}

// GetUnprocessedEvents returns pending events oldest first.
func (or *outboxRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	query := or.db.WithContext(ctx).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&events)
	return events, result.Error
}

func (or *outboxRepository) MarkEventAsProcessed(ctx context.Context, eventId string) error {
	result := or.db.WithContext(ctx).Where("event_id = ?", eventId).Delete(&model.OutboxEvent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox event %s: %w", eventId, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpdateRetryValue counts a failed publish. An event that keeps failing is
// parked as processed and has to be looked at manually.
func (or *outboxRepository) UpdateRetryValue(ctx context.Context, eventId string) error {
	event, err := or.GetEvent(ctx, eventId)
	if err != nil {
		return err
	}

	err = or.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", eventId).
		Update("retry", event.Retry+1).Error
	if err != nil {
		return err
	}

	if event.Retry+1 < maxRetries {
		return nil
	}
	return or.MarkEventAsProcessed(ctx, eventId)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
