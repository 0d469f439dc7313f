package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/internal/custody"
	"github.com/lotmarkethq/lotmarket-backend/internal/funds"
	"github.com/lotmarkethq/lotmarket-backend/internal/ownership"
	"github.com/lotmarkethq/lotmarket-backend/internal/registry"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	"github.com/lotmarkethq/lotmarket-backend/pkg/enums"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/fees"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	"github.com/lotmarkethq/lotmarket-backend/pkg/metrics"
	"github.com/lotmarkethq/lotmarket-backend/pkg/outbox"
	"github.com/lotmarkethq/lotmarket-backend/pkg/outbox/payloads"
)

// Service is the listing engine: the only writer of market items, ownership
// events, and the settlement ledgers. Every mutating operation runs inside a
// single transaction and holds the item's in-progress token for its duration.
type Service interface {
	CreateListing(ctx context.Context, seller uuid.UUID, input CreateListingInput) (*models.MarketItem, error)
	Buy(ctx context.Context, buyer uuid.UUID, itemID, quantity int64) (*BuyResult, error)
	Unlist(ctx context.Context, caller uuid.UUID, itemID int64) (*models.MarketItem, error)
	Reprice(ctx context.Context, caller uuid.UUID, itemID, newPriceCents int64) (*models.MarketItem, error)
}

// CreateListingInput carries the caller-supplied listing parameters.
type CreateListingInput struct {
	Custodian      string
	AssetID        string
	UnitPriceCents int64
	Quantity       int64
}

// BuyResult reports one settled purchase.
type BuyResult struct {
	Item      *models.MarketItem
	Ownership *models.OwnershipEvent
	FeeCents  int64
	PaidCents int64
	SoldOut   bool
}

// Options carries the platform accounts and fee rate the engine settles with.
type Options struct {
	FeeRateNumerator int64
	PlatformOwner    uuid.UUID
	EscrowAccount    uuid.UUID
}

type service struct {
	client    *db.Client
	registry  registry.Repository
	ownership ownership.Repository
	funds     funds.Service
	custody   custody.Service
	outbox    *outbox.Service
	metrics   *metrics.ListingMetrics
	logg      *logger.Logger
	guard     *itemGuard
	opts      Options
}

// NewService wires the listing engine.
func NewService(
	client *db.Client,
	registryRepo registry.Repository,
	ownershipRepo ownership.Repository,
	fundsSvc funds.Service,
	custodySvc custody.Service,
	outboxSvc *outbox.Service,
	listingMetrics *metrics.ListingMetrics,
	logg *logger.Logger,
	opts Options,
) Service {
	return &service{
		client:    client,
		registry:  registryRepo,
		ownership: ownershipRepo,
		funds:     fundsSvc,
		custody:   custodySvc,
		outbox:    outboxSvc,
		metrics:   listingMetrics,
		logg:      logg,
		guard:     newItemGuard(),
		opts:      opts,
	}
}

func (s *service) CreateListing(ctx context.Context, seller uuid.UUID, input CreateListingInput) (*models.MarketItem, error) {
	start := time.Now()

	item, err := s.createListing(ctx, seller, input)
	s.observe("create_listing", start, err)
	return item, err
}

func (s *service) createListing(ctx context.Context, seller uuid.UUID, input CreateListingInput) (*models.MarketItem, error) {
	if input.Custodian == "" || input.AssetID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custodian and asset id are required")
	}
	if input.UnitPriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item := &models.MarketItem{
		Custodian:      input.Custodian,
		AssetID:        input.AssetID,
		Seller:         seller,
		UnitPriceCents: input.UnitPriceCents,
		ListedQty:      input.Quantity,
		RemainingQty:   input.Quantity,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.registry.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		if err := s.custody.Transfer(ctx, tx, seller, s.opts.EscrowAccount, input.Custodian, input.AssetID, input.Quantity); err != nil {
			return err
		}
		if err := s.registry.WithTx(tx).AddActiveListings(ctx, 1); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemCreated,
			AggregateType: enums.AggregateMarketItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{ActorID: seller, Role: "seller"},
			Data:          payloads.ItemCreated{Item: snapshot(item)},
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithItemID(s.logg.WithActorID(ctx, seller.String()), item.ID)
	s.logg.Info(logCtx, "listing created")
	return item, nil
}

func (s *service) Buy(ctx context.Context, buyer uuid.UUID, itemID, quantity int64) (*BuyResult, error) {
	start := time.Now()

	result, err := s.buy(ctx, buyer, itemID, quantity)
	s.observe("buy", start, err)
	if result != nil {
		s.metrics.AddFee(result.FeeCents)
	}
	return result, err
}

func (s *service) buy(ctx context.Context, buyer uuid.UUID, itemID, quantity int64) (*BuyResult, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if err := s.guard.acquire(itemID); err != nil {
		return nil, err
	}
	defer s.guard.release(itemID)

	var result *BuyResult
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		registryTx := s.registry.WithTx(tx)

		item, err := registryTx.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Active() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is no longer open")
		}
		if buyer == item.Seller {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "seller cannot buy own listing")
		}
		if quantity > item.RemainingQty {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity exceeds remaining units")
		}

		total := quantity * item.UnitPriceCents
		fee := fees.Fee(quantity, item.UnitPriceCents, s.opts.FeeRateNumerator)

		// A buyer who is also the fee recipient skips the fee leg below, so
		// the full-price funding requirement is enforced up front.
		if fee > 0 && buyer == s.opts.PlatformOwner {
			balance, err := s.funds.BalanceOf(ctx, tx, buyer)
			if err != nil {
				return err
			}
			if balance < total {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "payer balance does not cover the amount")
			}
		}

		// Fee comes out of seller proceeds; the buyer pays exactly total.
		// Either transfer failing rolls back everything before it.
		if proceeds := total - fee; proceeds > 0 {
			if err := s.funds.Transfer(ctx, tx, buyer, item.Seller, proceeds); err != nil {
				return err
			}
		}
		if err := s.custody.Transfer(ctx, tx, s.opts.EscrowAccount, buyer, item.Custodian, item.AssetID, quantity); err != nil {
			return err
		}

		sequence, err := registryTx.NextSequence(ctx)
		if err != nil {
			return err
		}
		event := &models.OwnershipEvent{
			ItemID:   item.ID,
			Actor:    buyer,
			Quantity: quantity,
			Kind:     enums.OwnershipEventPurchase,
			Sequence: sequence,
		}
		if err := s.ownership.WithTx(tx).Append(ctx, event); err != nil {
			return err
		}

		if fee > 0 && buyer != s.opts.PlatformOwner {
			if err := s.funds.Transfer(ctx, tx, buyer, s.opts.PlatformOwner, fee); err != nil {
				return err
			}
		}

		item.RemainingQty -= quantity
		soldOut := item.RemainingQty == 0
		if soldOut {
			item.IsSold = true
		}
		if err := registryTx.Update(ctx, item); err != nil {
			return err
		}
		if soldOut {
			if err := registryTx.AddActiveListings(ctx, -1); err != nil {
				return err
			}
		}

		result = &BuyResult{
			Item:      item,
			Ownership: event,
			FeeCents:  fee,
			PaidCents: total,
			SoldOut:   soldOut,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemSold,
			AggregateType: enums.AggregateMarketItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{ActorID: buyer, Role: "buyer"},
			Data: payloads.ItemSold{
				Item:      snapshot(item),
				Ownership: record(event),
				SoldOut:   soldOut,
				FeeCents:  fee,
				PaidCents: total,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"item_id":   itemID,
		"buyer":     buyer.String(),
		"quantity":  quantity,
		"fee_cents": result.FeeCents,
		"sold_out":  result.SoldOut,
	})
	s.logg.Info(logCtx, "purchase settled")
	return result, nil
}

func (s *service) Unlist(ctx context.Context, caller uuid.UUID, itemID int64) (*models.MarketItem, error) {
	start := time.Now()

	item, err := s.unlist(ctx, caller, itemID)
	s.observe("unlist", start, err)
	return item, err
}

func (s *service) unlist(ctx context.Context, caller uuid.UUID, itemID int64) (*models.MarketItem, error) {
	if err := s.guard.acquire(itemID); err != nil {
		return nil, err
	}
	defer s.guard.release(itemID)

	var item *models.MarketItem
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		registryTx := s.registry.WithTx(tx)

		loaded, err := registryTx.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if loaded.Seller != caller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may unlist")
		}
		if !loaded.Active() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is no longer open")
		}

		reclaimed := loaded.RemainingQty
		if err := s.custody.Transfer(ctx, tx, s.opts.EscrowAccount, caller, loaded.Custodian, loaded.AssetID, reclaimed); err != nil {
			return err
		}

		sequence, err := registryTx.NextSequence(ctx)
		if err != nil {
			return err
		}
		event := &models.OwnershipEvent{
			ItemID:   loaded.ID,
			Actor:    caller,
			Quantity: reclaimed,
			Kind:     enums.OwnershipEventReclaim,
			Sequence: sequence,
		}
		if err := s.ownership.WithTx(tx).Append(ctx, event); err != nil {
			return err
		}

		loaded.IsUnlisted = true
		loaded.RemainingQty = 0
		if err := registryTx.Update(ctx, loaded); err != nil {
			return err
		}
		if err := registryTx.AddActiveListings(ctx, -1); err != nil {
			return err
		}

		item = loaded
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemUnlisted,
			AggregateType: enums.AggregateMarketItem,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: caller, Role: "seller"},
			Data: payloads.ItemUnlisted{
				Item:      snapshot(loaded),
				Ownership: record(event),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithItemID(s.logg.WithActorID(ctx, caller.String()), itemID)
	s.logg.Info(logCtx, "listing unlisted")
	return item, nil
}

func (s *service) Reprice(ctx context.Context, caller uuid.UUID, itemID, newPriceCents int64) (*models.MarketItem, error) {
	start := time.Now()

	item, err := s.reprice(ctx, caller, itemID, newPriceCents)
	s.observe("reprice", start, err)
	return item, err
}

func (s *service) reprice(ctx context.Context, caller uuid.UUID, itemID, newPriceCents int64) (*models.MarketItem, error) {
	if newPriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}

	if err := s.guard.acquire(itemID); err != nil {
		return nil, err
	}
	defer s.guard.release(itemID)

	var item *models.MarketItem
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		registryTx := s.registry.WithTx(tx)

		loaded, err := registryTx.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if loaded.Seller != caller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may reprice")
		}
		if !loaded.Active() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is no longer open")
		}

		oldPrice := loaded.UnitPriceCents
		loaded.UnitPriceCents = newPriceCents
		if err := registryTx.Update(ctx, loaded); err != nil {
			return err
		}

		item = loaded
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemPriceSet,
			AggregateType: enums.AggregateMarketItem,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: caller, Role: "seller"},
			Data: payloads.ItemPriceSet{
				Item:          snapshot(loaded),
				OldPriceCents: oldPrice,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithItemID(s.logg.WithActorID(ctx, caller.String()), itemID)
	s.logg.Info(logCtx, "listing repriced")
	return item, nil
}

func (s *service) observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.IncOutcome(operation, outcome)
	s.metrics.ObserveDuration(operation, time.Since(start))
}

func snapshot(item *models.MarketItem) payloads.ItemSnapshot {
	return payloads.ItemSnapshot{
		ItemID:         item.ID,
		Custodian:      item.Custodian,
		AssetID:        item.AssetID,
		Seller:         item.Seller,
		UnitPriceCents: item.UnitPriceCents,
		ListedQty:      item.ListedQty,
		RemainingQty:   item.RemainingQty,
		IsSold:         item.IsSold,
		IsUnlisted:     item.IsUnlisted,
	}
}

func record(event *models.OwnershipEvent) payloads.OwnershipRecord {
	return payloads.OwnershipRecord{
		Actor:     event.Actor,
		Quantity:  event.Quantity,
		Kind:      string(event.Kind),
		Sequence:  event.Sequence,
		CreatedAt: event.CreatedAt,
	}
}
