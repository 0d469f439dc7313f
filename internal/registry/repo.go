package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

// Repository owns the market item table and the registry counters row. Item
// ids are minted exclusively by Create via the monotonic primary key; they
// are never reused and rows are never deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.MarketItem) error
	Get(ctx context.Context, itemID int64) (*models.MarketItem, error)
	Update(ctx context.Context, item *models.MarketItem) error
	ListWindow(ctx context.Context, firstID, lastID int64, onlyActive bool, seller *uuid.UUID) ([]models.MarketItem, error)
	GetBatch(ctx context.Context, itemIDs []int64) (map[int64]models.MarketItem, error)
	AddActiveListings(ctx context.Context, delta int64) error
	Counters(ctx context.Context) (*models.RegistryCounters, error)
	NextSequence(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a registry repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.MarketItem) error {
	if item.UnitPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if item.ListedQty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listed quantity must be positive")
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Get(ctx context.Context, itemID int64) (*models.MarketItem, error) {
	var item models.MarketItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market item not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) Update(ctx context.Context, item *models.MarketItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) ListWindow(ctx context.Context, firstID, lastID int64, onlyActive bool, seller *uuid.UUID) ([]models.MarketItem, error) {
	query := r.db.WithContext(ctx).
		Where("id BETWEEN ? AND ?", firstID, lastID)
	if onlyActive {
		query = query.Where("is_sold = ? AND is_unlisted = ?", false, false)
	}
	if seller != nil {
		query = query.Where("seller = ?", *seller)
	}

	var items []models.MarketItem
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetBatch(ctx context.Context, itemIDs []int64) (map[int64]models.MarketItem, error) {
	result := make(map[int64]models.MarketItem, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}
	var items []models.MarketItem
	if err := r.db.WithContext(ctx).Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func (r *repository) AddActiveListings(ctx context.Context, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&models.RegistryCounters{}).
		Where("id = ?", models.RegistryCountersRowID).
		Update("active_listings", gorm.Expr("active_listings + ?", delta)).Error
}

func (r *repository) Counters(ctx context.Context) (*models.RegistryCounters, error) {
	var counters models.RegistryCounters
	err := r.db.WithContext(ctx).
		Where("id = ?", models.RegistryCountersRowID).
		First(&counters).Error
	if err != nil {
		return nil, err
	}
	return &counters, nil
}

// NextSequence hands out the next ownership-ledger sequence marker. The
// claim is a single atomic UPDATE ... RETURNING, so two transactions can
// never walk away with the same value. Callers must invoke it inside the
// mutating transaction so the increment commits with the event that
// consumed it.
func (r *repository) NextSequence(ctx context.Context) (int64, error) {
	var counters models.RegistryCounters
	res := r.db.WithContext(ctx).
		Model(&counters).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "next_sequence"}}}).
		Where("id = ?", models.RegistryCountersRowID).
		Update("next_sequence", gorm.Expr("next_sequence + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return counters.NextSequence - 1, nil
}
