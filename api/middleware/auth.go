package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lotmarkethq/lotmarket-backend/api/responses"
	"github.com/lotmarkethq/lotmarket-backend/pkg/config"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
)

type actorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates a bearer token and seeds the request context with the
// actor identity. The subject claim carries the actor uuid.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			actorID, role, err := parseActorToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActorID(r.Context(), actorID)
			ctx = withRole(ctx, role)
			if logg != nil {
				fields := map[string]any{"actor_id": actorID.String()}
				if role != "" {
					fields["actor_role"] = role
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseActorToken(cfg config.JWTConfig, token string) (uuid.UUID, string, error) {
	claims := &actorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, "", err
	}
	if !parsed.Valid {
		return uuid.Nil, "", fmt.Errorf("token rejected")
	}

	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("subject is not an actor id: %w", err)
	}
	return actorID, claims.Role, nil
}

func withRole(ctx context.Context, role string) context.Context {
	if role == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxRole, role)
}
