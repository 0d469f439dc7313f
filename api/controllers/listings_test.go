package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/api/routes"
	"github.com/lotmarkethq/lotmarket-backend/internal/custody"
	"github.com/lotmarkethq/lotmarket-backend/internal/funds"
	listingsvc "github.com/lotmarkethq/lotmarket-backend/internal/listing"
	"github.com/lotmarkethq/lotmarket-backend/internal/ownership"
	"github.com/lotmarkethq/lotmarket-backend/internal/query"
	"github.com/lotmarkethq/lotmarket-backend/internal/registry"
	"github.com/lotmarkethq/lotmarket-backend/pkg/config"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db"
	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	"github.com/lotmarkethq/lotmarket-backend/pkg/logger"
	"github.com/lotmarkethq/lotmarket-backend/pkg/metrics"
	"github.com/lotmarkethq/lotmarket-backend/pkg/outbox"
)

const (
	testSecret = "controller-test-secret"
	testIssuer = "lotmarket-test"
)

type apiFixture struct {
	server  *httptest.Server
	funds   funds.Service
	custody custody.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.MarketItem{},
		&models.OwnershipEvent{},
		&models.RegistryCounters{},
		&models.AccountBalance{},
		&models.AssetHolding{},
		&models.OutboxEvent{},
	))
	require.NoError(t, conn.Create(&models.RegistryCounters{ID: models.RegistryCountersRowID}).Error)

	logg := logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: testSecret, Issuer: testIssuer},
	}

	registryRepo := registry.NewRepository(conn)
	ownershipRepo := ownership.NewRepository(conn)
	fundsSvc := funds.NewService(conn)
	custodySvc := custody.NewService(conn)
	registryMetrics := prometheus.NewRegistry()

	listingService := listingsvc.NewService(
		db.NewFromConn(conn),
		registryRepo,
		ownershipRepo,
		fundsSvc,
		custodySvc,
		outbox.NewService(outbox.NewRepository(conn), logg),
		metrics.NewListingMetrics(registryMetrics),
		logg,
		listingsvc.Options{
			FeeRateNumerator: 100_000_000,
			PlatformOwner:    uuid.New(),
			EscrowAccount:    uuid.New(),
		},
	)
	queryService := query.NewService(registryRepo, ownershipRepo)

	handler := routes.NewRouter(cfg, logg, nil, nil, registryMetrics, listingService, queryService)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, funds: fundsSvc, custody: custodySvc}
}

func (f *apiFixture) token(t *testing.T, actor uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   actor.String(),
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path string, actor *uuid.UUID, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+f.token(t, *actor))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func decodeData[T any](t *testing.T, envelope map[string]json.RawMessage) T {
	t.Helper()
	var out T
	require.Contains(t, envelope, "data")
	require.NoError(t, json.Unmarshal(envelope["data"], &out))
	return out
}

func errorCode(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	require.Contains(t, envelope, "error")
	var apiErr struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(envelope["error"], &apiErr))
	return apiErr.Code
}

type itemBody struct {
	ItemID         int64  `json:"item_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	RemainingQty   int64  `json:"remaining_qty"`
	IsSold         bool   `json:"is_sold"`
	IsUnlisted     bool   `json:"is_unlisted"`
	Seller         string `json:"seller"`
}

func TestCreateAndBuyOverHTTP(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()

	require.NoError(t, f.custody.Deposit(ctx, nil, seller, "vault-a", "lot-9", 10))
	require.NoError(t, f.funds.Deposit(ctx, nil, buyer, 1000))

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/listings", &seller, map[string]any{
		"custodian":        "vault-a",
		"asset_id":         "lot-9",
		"unit_price_cents": 100,
		"quantity":         10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeData[itemBody](t, envelope)
	assert.Equal(t, int64(1), created.ItemID)
	assert.Equal(t, int64(10), created.RemainingQty)

	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/1/buy", &buyer, map[string]any{
		"quantity": 4,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bought struct {
		Item      itemBody `json:"item"`
		FeeCents  int64    `json:"fee_cents"`
		PaidCents int64    `json:"paid_cents"`
		SoldOut   bool     `json:"sold_out"`
	}
	require.Contains(t, envelope, "data")
	require.NoError(t, json.Unmarshal(envelope["data"], &bought))
	assert.Equal(t, int64(4), bought.FeeCents)
	assert.Equal(t, int64(400), bought.PaidCents)
	assert.Equal(t, int64(6), bought.Item.RemainingQty)
	assert.False(t, bought.SoldOut)

	balance, err := f.funds.BalanceOf(ctx, nil, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(396), balance)
}

func TestMutationsRequireAuth(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/listings", nil, map[string]any{
		"custodian":        "vault-a",
		"asset_id":         "lot-9",
		"unit_price_cents": 100,
		"quantity":         10,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, envelope))
}

func TestErrorMappingOverHTTP(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()

	require.NoError(t, f.custody.Deposit(ctx, nil, seller, "vault-a", "lot-9", 5))
	require.NoError(t, f.funds.Deposit(ctx, nil, buyer, 10))

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/listings", &seller, map[string]any{
		"custodian":        "vault-a",
		"asset_id":         "lot-9",
		"unit_price_cents": 100,
		"quantity":         5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Unknown item.
	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/999/buy", &buyer, map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, envelope))

	// Over-ask.
	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/1/buy", &buyer, map[string]any{"quantity": 6})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "STATE_CONFLICT", errorCode(t, envelope))

	// Short on funds.
	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/1/buy", &buyer, map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_FUNDS", errorCode(t, envelope))

	// Foreign unlist.
	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/1/unlist", &buyer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, envelope))

	// Bad body.
	resp, envelope = f.do(t, http.MethodPost, "/api/v1/listings/1/price", &seller, map[string]any{"unit_price_cents": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, envelope))
}

func TestReadEndpointsOverHTTP(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()

	require.NoError(t, f.custody.Deposit(ctx, nil, seller, "vault-a", "lot-9", 10))
	require.NoError(t, f.funds.Deposit(ctx, nil, buyer, 1000))

	resp, _ := f.do(t, http.MethodPost, "/api/v1/listings", &seller, map[string]any{
		"custodian":        "vault-a",
		"asset_id":         "lot-9",
		"unit_price_cents": 100,
		"quantity":         10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/listings/1/buy", &buyer, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := f.do(t, http.MethodGet, "/api/v1/listings?page=1&page_size=10", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Items          []itemBody `json:"items"`
		ActiveListings int64      `json:"active_listings"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.ActiveListings)

	resp, envelope = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/listings?filter=owned_by&actor=%s", buyer), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["data"], &page))
	require.Len(t, page.Items, 1)

	resp, envelope = f.do(t, http.MethodGet, "/api/v1/listings/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeData[itemBody](t, envelope)
	assert.Equal(t, int64(7), got.RemainingQty)

	resp, envelope = f.do(t, http.MethodGet, "/api/v1/listings/1/history", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(envelope["data"], &history))
	assert.Len(t, history, 1)

	resp, envelope = f.do(t, http.MethodGet, "/api/v1/listings/99", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, envelope))

	resp, envelope = f.do(t, http.MethodGet, "/api/v1/listings?page=0", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, envelope))
}
