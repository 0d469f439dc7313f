package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/api/middleware"
	"github.com/lotmarkethq/lotmarket-backend/api/responses"
	"github.com/lotmarkethq/lotmarket-backend/api/validators"
	listingsvc "github.com/lotmarkethq/lotmarket-backend/internal/listing"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
)

type createListingRequest struct {
	Custodian      string `json:"custodian" validate:"required"`
	AssetID        string `json:"asset_id" validate:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
}

type buyRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type repriceRequest struct {
	UnitPriceCents int64 `json:"unit_price_cents" validate:"required,gt=0"`
}

type listingResponse struct {
	ItemID         int64     `json:"item_id"`
	Custodian      string    `json:"custodian"`
	AssetID        string    `json:"asset_id"`
	Seller         uuid.UUID `json:"seller"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	ListedQty      int64     `json:"listed_qty"`
	RemainingQty   int64     `json:"remaining_qty"`
	IsSold         bool      `json:"is_sold"`
	IsUnlisted     bool      `json:"is_unlisted"`
	CreatedAt      time.Time `json:"created_at"`
}

type ownershipResponse struct {
	Actor     uuid.UUID `json:"actor"`
	Quantity  int64     `json:"quantity"`
	Kind      string    `json:"kind"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

type buyResponse struct {
	Item      listingResponse   `json:"item"`
	Ownership ownershipResponse `json:"ownership"`
	FeeCents  int64             `json:"fee_cents"`
	PaidCents int64             `json:"paid_cents"`
	SoldOut   bool              `json:"sold_out"`
}

// CreateListing escrows the seller's units and opens a new listing.
func CreateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateListing(r.Context(), seller, listingsvc.CreateListingInput{
			Custodian:      payload.Custodian,
			AssetID:        payload.AssetID,
			UnitPriceCents: payload.UnitPriceCents,
			Quantity:       payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newListingResponse(item))
	}
}

// BuyListing settles a purchase of part or all of a listing.
func BuyListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := itemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload buyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Buy(r.Context(), buyer, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, buyResponse{
			Item: newListingResponse(result.Item),
			Ownership: ownershipResponse{
				Actor:     result.Ownership.Actor,
				Quantity:  result.Ownership.Quantity,
				Kind:      string(result.Ownership.Kind),
				Sequence:  result.Ownership.Sequence,
				CreatedAt: result.Ownership.CreatedAt,
			},
			FeeCents:  result.FeeCents,
			PaidCents: result.PaidCents,
			SoldOut:   result.SoldOut,
		})
	}
}

// UnlistListing withdraws the listing and reclaims the remaining units.
func UnlistListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := itemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Unlist(r.Context(), caller, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newListingResponse(item))
	}
}

// RepriceListing sets a new unit price on an open listing.
func RepriceListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := itemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload repriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Reprice(r.Context(), caller, itemID, payload.UnitPriceCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newListingResponse(item))
	}
}

func actorFromRequest(r *http.Request) (uuid.UUID, error) {
	actorID := middleware.ActorIDFromContext(r.Context())
	if actorID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required")
	}
	return actorID, nil
}

func itemIDFromRequest(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || itemID < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a positive integer")
	}
	return itemID, nil
}

func newListingResponse(item *models.MarketItem) listingResponse {
	return listingResponse{
		ItemID:         item.ID,
		Custodian:      item.Custodian,
		AssetID:        item.AssetID,
		Seller:         item.Seller,
		UnitPriceCents: item.UnitPriceCents,
		ListedQty:      item.ListedQty,
		RemainingQty:   item.RemainingQty,
		IsSold:         item.IsSold,
		IsUnlisted:     item.IsUnlisted,
		CreatedAt:      item.CreatedAt,
	}
}
