package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/pkg/enums"
)

// OutboxDLQ holds outbox events that exhausted their publish attempts.
type OutboxDLQ struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   int64                     `gorm:"column:aggregate_id;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	LastError     string                    `gorm:"column:last_error;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
