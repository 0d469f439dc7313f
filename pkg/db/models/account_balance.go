package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountBalance tracks the currency balance per actor.
type AccountBalance struct {
	ActorID      uuid.UUID `gorm:"column:actor_id;type:uuid;primaryKey"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
