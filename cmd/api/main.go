package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lotmarkethq/lotmarket-backend/api/routes"
	"github.com/lotmarkethq/lotmarket-backend/internal/custody"
	"github.com/lotmarkethq/lotmarket-backend/internal/funds"
	listingsvc "github.com/lotmarkethq/lotmarket-backend/internal/listing"
	"github.com/lotmarkethq/lotmarket-backend/internal/ownership"
	querysvc "github.com/lotmarkethq/lotmarket-backend/internal/query"
	"github.com/lotmarkethq/lotmarket-backend/internal/registry"
	"github.com/lotmarkethq/lotmarket-backend/pkg/config"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	"github.com/lotmarkethq/lotmarket-backend/pkg/metrics"
	"github.com/lotmarkethq/lotmarket-backend/pkg/migrate"
	"github.com/lotmarkethq/lotmarket-backend/pkg/outbox"
	"github.com/lotmarkethq/lotmarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conn := dbClient.DB()
	registryRepo := registry.NewRepository(conn)
	ownershipRepo := ownership.NewRepository(conn)

	listingService := listingsvc.NewService(
		dbClient,
		registryRepo,
		ownershipRepo,
		funds.NewService(conn),
		custody.NewService(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		metrics.NewListingMetrics(metricsRegistry),
		logg,
		listingsvc.Options{
			FeeRateNumerator: cfg.Fees.RateNumerator,
			PlatformOwner:    cfg.Platform.Owner(),
			EscrowAccount:    cfg.Platform.Escrow(),
		},
	)
	queryService := querysvc.NewService(registryRepo, ownershipRepo)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, metricsRegistry, listingService, queryService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
