package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/lotmarkethq/lotmarket-backend/api/responses"
	"github.com/lotmarkethq/lotmarket-backend/pkg/config"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	pkgredis "github.com/lotmarkethq/lotmarket-backend/pkg/redis"
)

const envHeader = "X-LotMarket-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the datasources answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisClient *pkgredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
