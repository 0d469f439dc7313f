package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/api/responses"
	"github.com/lotmarkethq/lotmarket-backend/api/validators"
	querysvc "github.com/lotmarkethq/lotmarket-backend/internal/query"
	"github.com/lotmarkethq/lotmarket-backend/pkg/enums"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	"github.com/lotmarkethq/lotmarket-backend/pkg/pagination"
)

// ListListings serves one page of the read model. Filters needing an actor
// take it from the `actor` query parameter.
func ListListings(svc querysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, int64(1)<<40)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageSize, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := querysvc.ListParams{
			Page:     page,
			PageSize: pageSize,
			Filter:   enums.ListingFilterAll,
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("filter")); raw != "" {
			filter, err := enums.ParseListingFilter(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter"))
				return
			}
			params.Filter = filter
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("actor")); raw != "" {
			actor, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id"))
				return
			}
			params.Actor = &actor
		}

		result, err := svc.ListPage(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetListing serves one item view.
func GetListing(svc querysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := itemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ListingHistory serves the item's ownership events in append order.
func ListingHistory(svc querysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := itemIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.OwnershipHistory(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
