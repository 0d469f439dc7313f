package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:registry_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.MarketItem{}, &models.RegistryCounters{}))
	require.NoError(t, conn.Create(&models.RegistryCounters{ID: models.RegistryCountersRowID}).Error)
	return conn
}

func seedItem(t *testing.T, repo Repository, seller uuid.UUID, price, qty int64) *models.MarketItem {
	t.Helper()
	item := &models.MarketItem{
		Custodian:      "vault-a",
		AssetID:        "lot-9",
		Seller:         seller,
		UnitPriceCents: price,
		ListedQty:      qty,
		RemainingQty:   qty,
	}
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestCreateMintsMonotonicIDs(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	seller := uuid.New()

	first := seedItem(t, repo, seller, 100, 5)
	second := seedItem(t, repo, seller, 200, 3)

	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	err := repo.Create(ctx, &models.MarketItem{Seller: uuid.New(), UnitPriceCents: 0, ListedQty: 5})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = repo.Create(ctx, &models.MarketItem{Seller: uuid.New(), UnitPriceCents: 10, ListedQty: 0})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = repo.Create(ctx, &models.MarketItem{Seller: uuid.New(), UnitPriceCents: -1, ListedQty: -4})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetUnknownItemReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))

	_, err := repo.Get(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListWindowFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	seedItem(t, repo, alice, 100, 5) // id 1
	sold := seedItem(t, repo, bob, 200, 2) // id 2
	seedItem(t, repo, alice, 300, 1) // id 3
	seedItem(t, repo, bob, 400, 7) // id 4

	sold.IsSold = true
	sold.RemainingQty = 0
	require.NoError(t, repo.Update(ctx, sold))

	all, err := repo.ListWindow(ctx, 1, 4, false, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}

	active, err := repo.ListWindow(ctx, 1, 4, true, nil)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, item := range active {
		assert.True(t, item.Active())
	}

	byBob, err := repo.ListWindow(ctx, 1, 4, false, &bob)
	require.NoError(t, err)
	require.Len(t, byBob, 2)

	partial, err := repo.ListWindow(ctx, 2, 3, false, nil)
	require.NoError(t, err)
	require.Len(t, partial, 2)
	assert.Equal(t, int64(2), partial[0].ID)
	assert.Equal(t, int64(3), partial[1].ID)

	empty, err := repo.ListWindow(ctx, 100, 199, false, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetBatch(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	seller := uuid.New()

	seedItem(t, repo, seller, 100, 1)
	seedItem(t, repo, seller, 200, 1)

	batch, err := repo.GetBatch(ctx, []int64{1, 2, 99})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(100), batch[1].UnitPriceCents)
	assert.Equal(t, int64(200), batch[2].UnitPriceCents)

	none, err := repo.GetBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestActiveListingsCounter(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddActiveListings(ctx, 1))
	require.NoError(t, repo.AddActiveListings(ctx, 1))
	require.NoError(t, repo.AddActiveListings(ctx, -1))

	counters, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters.ActiveListings)
}

func TestNextSequenceIsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	var previous int64
	for i := 0; i < 5; i++ {
		seq, err := repo.NextSequence(ctx)
		require.NoError(t, err)
		assert.Greater(t, seq, previous)
		previous = seq
	}

	counters, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, previous+1, counters.NextSequence)
}

func TestNextSequenceClaimsAreUnique(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	// Each claim runs in its own transaction, like buys of different items
	// would. The atomic increment must never hand out the same marker twice.
	seen := make(map[int64]struct{})
	for i := 0; i < 20; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			seq, err := repo.WithTx(tx).NextSequence(context.Background())
			if err != nil {
				return err
			}
			if _, dup := seen[seq]; dup {
				return fmt.Errorf("sequence %d claimed twice", seq)
			}
			seen[seq] = struct{}{}
			return nil
		})
		require.NoError(t, err)
	}
	require.Len(t, seen, 20)

	counters, err := repo.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(21), counters.NextSequence)
}

func TestWithTxRebindsConnection(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	seller := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		item := &models.MarketItem{
			Custodian:      "vault-a",
			AssetID:        "lot-1",
			Seller:         seller,
			UnitPriceCents: 50,
			ListedQty:      2,
			RemainingQty:   2,
		}
		if err := txRepo.Create(context.Background(), item); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	require.Error(t, err)

	_, err = repo.Get(context.Background(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
