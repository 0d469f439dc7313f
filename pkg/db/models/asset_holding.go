package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetHolding tracks how many units of (custodian, asset) an owner holds.
// The platform escrow account owns listed quantities between create and
// buy/unlist.
type AssetHolding struct {
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;primaryKey"`
	Custodian string    `gorm:"column:custodian;primaryKey"`
	AssetID   string    `gorm:"column:asset_id;primaryKey"`
	Quantity  int64     `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
