package model

import "gorm.io/gorm"

type OutboxEvent struct {
	Id             uint   `gorm:"primaryKey;autoIncrement"`
	EventId        string `gorm:"uniqueIndex"`
	EventType      string
	AttestationUid string `gorm:"index"`
	Payload        string
	Retry          int
	ProcessedAt    gorm.DeletedAt
	CreatedAt      int64
}
