package custody

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

	dsn := fmt.Sprintf("file:custody_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.AssetHolding{}))
	return conn
}

func TestDepositAndHoldingOf(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	owner := uuid.New()

	holding, err := svc.HoldingOf(ctx, owner, "vault-a", "lot-9")
	require.NoError(t, err)
	assert.Zero(t, holding)

	require.NoError(t, svc.Deposit(ctx, nil, owner, "vault-a", "lot-9", 10))
	require.NoError(t, svc.Deposit(ctx, nil, owner, "vault-a", "lot-9", 5))

	holding, err = svc.HoldingOf(ctx, owner, "vault-a", "lot-9")
	require.NoError(t, err)
	assert.Equal(t, int64(15), holding)

	// Separate asset key, separate bucket.
	other, err := svc.HoldingOf(ctx, owner, "vault-a", "lot-10")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestTransferMovesUnits(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	seller := uuid.New()
	escrow := uuid.New()

	require.NoError(t, svc.Deposit(ctx, nil, seller, "vault-a", "lot-9", 20))
	require.NoError(t, svc.Transfer(ctx, nil, seller, escrow, "vault-a", "lot-9", 8))

	sellerHolding, err := svc.HoldingOf(ctx, seller, "vault-a", "lot-9")
	require.NoError(t, err)
	escrowHolding, err := svc.HoldingOf(ctx, escrow, "vault-a", "lot-9")
	require.NoError(t, err)

	assert.Equal(t, int64(12), sellerHolding)
	assert.Equal(t, int64(8), escrowHolding)
}

func TestTransferInsufficientAsset(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	seller := uuid.New()
	escrow := uuid.New()

	require.NoError(t, svc.Deposit(ctx, nil, seller, "vault-a", "lot-9", 3))

	err := svc.Transfer(ctx, nil, seller, escrow, "vault-a", "lot-9", 4)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientAsset))

	sellerHolding, err := svc.HoldingOf(ctx, seller, "vault-a", "lot-9")
	require.NoError(t, err)
	escrowHolding, err := svc.HoldingOf(ctx, escrow, "vault-a", "lot-9")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sellerHolding)
	assert.Zero(t, escrowHolding)

	// Holding under a different asset key does not cover the transfer.
	require.NoError(t, svc.Deposit(ctx, nil, seller, "vault-b", "lot-9", 10))
	err = svc.Transfer(ctx, nil, seller, escrow, "vault-a", "lot-9", 4)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientAsset))
}

func TestTransferRejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	owner := uuid.New()

	err := svc.Transfer(ctx, nil, owner, uuid.New(), "vault-a", "lot-9", 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.Transfer(ctx, nil, owner, owner, "vault-a", "lot-9", 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.Deposit(ctx, nil, owner, "vault-a", "lot-9", -1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestTransferRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	seller := uuid.New()
	escrow := uuid.New()

	require.NoError(t, svc.Deposit(ctx, nil, seller, "vault-a", "lot-9", 6))

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Transfer(ctx, tx, seller, escrow, "vault-a", "lot-9", 6); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	require.Error(t, err)

	sellerHolding, err := svc.HoldingOf(ctx, seller, "vault-a", "lot-9")
	require.NoError(t, err)
	assert.Equal(t, int64(6), sellerHolding)
}
