package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/internal/ownership"
	"github.com/lotmarkethq/lotmarket-backend/internal/registry"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	"github.com/lotmarkethq/lotmarket-backend/pkg/enums"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/pagination"
)

// Service is the read model over the item registry and the ownership ledger.
// It never mutates state; pages are windows over the contiguous id space, so
// a page can hold fewer rows than pageSize (or none) without being an error.
type Service interface {
	ListPage(ctx context.Context, params ListParams) (*ListResult, error)
	GetItem(ctx context.Context, itemID int64) (*ItemView, error)
	OwnershipHistory(ctx context.Context, itemID int64) ([]EventView, error)
}

// ListParams carries the pagination window and row filter.
type ListParams struct {
	Page     int64
	PageSize int64
	Filter   enums.ListingFilter
	Actor    *uuid.UUID
}

// ItemView is the row shape returned by list and get queries. For the
// owned_by filter Quantity is the matching ownership event's quantity; for
// every other read it is the item's remaining quantity.
type ItemView struct {
	ItemID         int64     `json:"item_id"`
	Custodian      string    `json:"custodian"`
	AssetID        string    `json:"asset_id"`
	Seller         uuid.UUID `json:"seller"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int64     `json:"quantity"`
	ListedQty      int64     `json:"listed_qty"`
	IsSold         bool      `json:"is_sold"`
	IsUnlisted     bool      `json:"is_unlisted"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventView is one ownership history row.
type EventView struct {
	Actor     uuid.UUID `json:"actor"`
	Quantity  int64     `json:"quantity"`
	Kind      string    `json:"kind"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResult is one page plus registry-level counters.
type ListResult struct {
	Items          []ItemView `json:"items"`
	Page           int64      `json:"page"`
	PageSize       int64      `json:"page_size"`
	ActiveListings int64      `json:"active_listings"`
}

type service struct {
	registry  registry.Repository
	ownership ownership.Repository
}

// NewService wires the query service over the registry and ownership repos.
func NewService(registryRepo registry.Repository, ownershipRepo ownership.Repository) Service {
	return &service{registry: registryRepo, ownership: ownershipRepo}
}

func (s *service) ListPage(ctx context.Context, params ListParams) (*ListResult, error) {
	filter := params.Filter
	if filter == "" {
		filter = enums.ListingFilterAll
	}
	if !filter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown listing filter")
	}
	if filter.RequiresActor() && params.Actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filter requires an actor")
	}

	window, err := pagination.WindowFor(pagination.Params{
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pagination")
	}

	var items []ItemView
	switch filter {
	case enums.ListingFilterOwnedBy:
		items, err = s.ownedByPage(ctx, *params.Actor, window)
	default:
		items, err = s.itemPage(ctx, filter, params.Actor, window)
	}
	if err != nil {
		return nil, err
	}

	counters, err := s.registry.Counters(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:          items,
		Page:           params.Page,
		PageSize:       window.LastID - window.FirstID + 1,
		ActiveListings: counters.ActiveListings,
	}, nil
}

func (s *service) itemPage(ctx context.Context, filter enums.ListingFilter, actor *uuid.UUID, window pagination.Window) ([]ItemView, error) {
	onlyActive := filter == enums.ListingFilterActive
	var seller *uuid.UUID
	if filter == enums.ListingFilterCreatedBy {
		seller = actor
	}

	rows, err := s.registry.ListWindow(ctx, window.FirstID, window.LastID, onlyActive, seller)
	if err != nil {
		return nil, err
	}

	items := make([]ItemView, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemView(row, row.RemainingQty))
	}
	return items, nil
}

// ownedByPage returns one row per ownership event in the window, so an actor
// who bought from the same item twice sees two rows for it.
func (s *service) ownedByPage(ctx context.Context, actor uuid.UUID, window pagination.Window) ([]ItemView, error) {
	events, err := s.ownership.ListByActorWindow(ctx, actor, window.FirstID, window.LastID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []ItemView{}, nil
	}

	itemIDs := make([]int64, 0, len(events))
	seen := make(map[int64]struct{}, len(events))
	for _, event := range events {
		if _, ok := seen[event.ItemID]; ok {
			continue
		}
		seen[event.ItemID] = struct{}{}
		itemIDs = append(itemIDs, event.ItemID)
	}

	batch, err := s.registry.GetBatch(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	items := make([]ItemView, 0, len(events))
	for _, event := range events {
		row, ok := batch[event.ItemID]
		if !ok {
			continue
		}
		items = append(items, itemView(row, event.Quantity))
	}
	return items, nil
}

func (s *service) GetItem(ctx context.Context, itemID int64) (*ItemView, error) {
	item, err := s.registry.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	view := itemView(*item, item.RemainingQty)
	return &view, nil
}

// OwnershipHistory returns the item's events in append order. An item with
// no events yields an empty slice; an item that was never created is NotFound.
func (s *service) OwnershipHistory(ctx context.Context, itemID int64) ([]EventView, error) {
	if _, err := s.registry.Get(ctx, itemID); err != nil {
		return nil, err
	}

	events, err := s.ownership.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, EventView{
			Actor:     event.Actor,
			Quantity:  event.Quantity,
			Kind:      string(event.Kind),
			Sequence:  event.Sequence,
			CreatedAt: event.CreatedAt,
		})
	}
	return views, nil
}

func itemView(item models.MarketItem, quantity int64) ItemView {
	return ItemView{
		ItemID:         item.ID,
		Custodian:      item.Custodian,
		AssetID:        item.AssetID,
		Seller:         item.Seller,
		UnitPriceCents: item.UnitPriceCents,
		Quantity:       quantity,
		ListedQty:      item.ListedQty,
		IsSold:         item.IsSold,
		IsUnlisted:     item.IsUnlisted,
		CreatedAt:      item.CreatedAt,
	}
}
