package custody

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

// Service is the asset custodian: per-owner unit holdings keyed by
// (custodian, asset). Listing moves units from the seller to the platform
// escrow account; buy and unlist move them back out. Transfers are
// all-or-nothing inside the caller's transaction.
type Service interface {
	HoldingOf(ctx context.Context, owner uuid.UUID, custodian, assetID string) (int64, error)
	Deposit(ctx context.Context, tx *gorm.DB, owner uuid.UUID, custodian, assetID string, quantity int64) error
	Transfer(ctx context.Context, tx *gorm.DB, from, to uuid.UUID, custodian, assetID string, quantity int64) error
}

type service struct {
	db *gorm.DB
}

// NewService returns a custody service bound to the provided database.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *service) HoldingOf(ctx context.Context, owner uuid.UUID, custodian, assetID string) (int64, error) {
	var holding models.AssetHolding
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND custodian = ? AND asset_id = ?", owner, custodian, assetID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return holding.Quantity, nil
}

func (s *service) Deposit(ctx context.Context, tx *gorm.DB, owner uuid.UUID, custodian, assetID string, quantity int64) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deposit quantity must be positive")
	}
	return credit(ctx, s.conn(tx), owner, custodian, assetID, quantity)
}

func (s *service) Transfer(ctx context.Context, tx *gorm.DB, from, to uuid.UUID, custodian, assetID string, quantity int64) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer quantity must be positive")
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer endpoints must differ")
	}

	conn := s.conn(tx).WithContext(ctx)

	res := conn.Model(&models.AssetHolding{}).
		Where("owner_id = ? AND custodian = ? AND asset_id = ? AND quantity >= ?", from, custodian, assetID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientAsset, "holding does not cover the quantity")
	}

	return credit(ctx, s.conn(tx), to, custodian, assetID, quantity)
}

func credit(ctx context.Context, conn *gorm.DB, owner uuid.UUID, custodian, assetID string, quantity int64) error {
	res := conn.WithContext(ctx).Model(&models.AssetHolding{}).
		Where("owner_id = ? AND custodian = ? AND asset_id = ?", owner, custodian, assetID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&models.AssetHolding{
		OwnerID:   owner,
		Custodian: custodian,
		AssetID:   assetID,
		Quantity:  quantity,
	}).Error
}
