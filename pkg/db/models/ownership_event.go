package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/pkg/enums"
)

// OwnershipEvent is one append-only audit record on a market item's ledger:
// a buyer acquiring units (purchase) or the seller taking the remainder back
// (reclaim). Events are never updated; append order is chronological order.
type OwnershipEvent struct {
	ID        int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID    int64                    `gorm:"column:item_id;not null;index"`
	Actor     uuid.UUID                `gorm:"column:actor;type:uuid;not null;index"`
	Quantity  int64                    `gorm:"column:quantity;not null"`
	Kind      enums.OwnershipEventKind `gorm:"column:kind;not null"`
	Sequence  int64                    `gorm:"column:sequence;not null"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
}
