package models

import "time"

// RegistryCounters is the single bookkeeping row for the item registry:
// the incrementally maintained count of active listings (avoids full scans
// on write paths) and the next ownership-ledger sequence marker.
type RegistryCounters struct {
	ID             int16     `gorm:"column:id;primaryKey"`
	ActiveListings int64     `gorm:"column:active_listings;not null;default:0"`
	NextSequence   int64     `gorm:"column:next_sequence;not null;default:1"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RegistryCountersRowID is the fixed id of the singleton counters row.
const RegistryCountersRowID int16 = 1
