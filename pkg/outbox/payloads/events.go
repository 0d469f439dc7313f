// Package payloads defines the data carried inside outbox event envelopes.
// Every listing event carries the full post-mutation item snapshot; buy and
// unlist additionally carry the ownership event just appended.
package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ItemSnapshot is the post-mutation state of a market item.
type ItemSnapshot struct {
	ItemID         int64     `json:"item_id"`
	Custodian      string    `json:"custodian"`
	AssetID        string    `json:"asset_id"`
	Seller         uuid.UUID `json:"seller"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	ListedQty      int64     `json:"listed_qty"`
	RemainingQty   int64     `json:"remaining_qty"`
	IsSold         bool      `json:"is_sold"`
	IsUnlisted     bool      `json:"is_unlisted"`
}

// OwnershipRecord mirrors the ownership event appended by a buy or unlist.
type OwnershipRecord struct {
	Actor     uuid.UUID `json:"actor"`
	Quantity  int64     `json:"quantity"`
	Kind      string    `json:"kind"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemCreated is emitted once per listing creation.
type ItemCreated struct {
	Item ItemSnapshot `json:"item"`
}

// ItemSold is emitted on every buy, whether or not it exhausts the listing;
// SoldOut flags the buy that did.
type ItemSold struct {
	Item      ItemSnapshot    `json:"item"`
	Ownership OwnershipRecord `json:"ownership"`
	SoldOut   bool            `json:"sold_out"`
	FeeCents  int64           `json:"fee_cents"`
	PaidCents int64           `json:"paid_cents"`
}

// ItemUnlisted is emitted when the seller withdraws the listing.
type ItemUnlisted struct {
	Item      ItemSnapshot    `json:"item"`
	Ownership OwnershipRecord `json:"ownership"`
}

// ItemPriceSet is emitted when the seller reprices an open listing.
type ItemPriceSet struct {
	Item          ItemSnapshot `json:"item"`
	OldPriceCents int64        `json:"old_price_cents"`
}
