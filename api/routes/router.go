package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lotmarkethq/lotmarket-backend/api/controllers"
	"github.com/lotmarkethq/lotmarket-backend/api/middleware"
	listingsvc "github.com/lotmarkethq/lotmarket-backend/internal/listing"
	querysvc "github.com/lotmarkethq/lotmarket-backend/internal/query"
	"github.com/lotmarkethq/lotmarket-backend/pkg/config"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	pkgredis "github.com/lotmarkethq/lotmarket-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	metricsRegistry *prometheus.Registry,
	listingService listingsvc.Service,
	queryService querysvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/listings", func(r chi.Router) {
		// Reads are public.
		r.Get("/", controllers.ListListings(queryService, logg))
		r.Get("/{itemID}", controllers.GetListing(queryService, logg))
		r.Get("/{itemID}/history", controllers.ListingHistory(queryService, logg))

		// Mutations require an authenticated actor and honor idempotency keys.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			var idemStore pkgredis.IdempotencyStore
			if redisClient != nil {
				idemStore = redisClient
			}
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Post("/", controllers.CreateListing(listingService, logg))
			r.Post("/{itemID}/buy", controllers.BuyListing(listingService, logg))
			r.Post("/{itemID}/unlist", controllers.UnlistListing(listingService, logg))
			r.Post("/{itemID}/price", controllers.RepriceListing(listingService, logg))
		})
	})

	return r
}
