package models

import (
	"time"

	"github.com/google/uuid"
)

// MarketItem is one listing: a quantity of a fungible-within-a-lot asset
// escrowed by a seller and offered at a unit price. Rows are never deleted;
// sold and unlisted items remain as historical records.
type MarketItem struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Custodian      string    `gorm:"column:custodian;not null"`
	AssetID        string    `gorm:"column:asset_id;not null"`
	Seller         uuid.UUID `gorm:"column:seller;type:uuid;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	ListedQty      int64     `gorm:"column:listed_qty;not null"`
	RemainingQty   int64     `gorm:"column:remaining_qty;not null"`
	IsSold         bool      `gorm:"column:is_sold;not null;default:false"`
	IsUnlisted     bool      `gorm:"column:is_unlisted;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the item is still open for buy/unlist/reprice.
func (m MarketItem) Active() bool {
	return !m.IsSold && !m.IsUnlisted
}
