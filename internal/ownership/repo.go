package ownership

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
)

// Repository manages the append-only ownership event log. Events are only
// ever inserted; there is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, event *models.OwnershipEvent) error
	ListByItem(ctx context.Context, itemID int64) ([]models.OwnershipEvent, error)
	ListByActorWindow(ctx context.Context, actor uuid.UUID, firstItemID, lastItemID int64) ([]models.OwnershipEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an ownership ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, event *models.OwnershipEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByItem(ctx context.Context, itemID int64) ([]models.OwnershipEvent, error) {
	var events []models.OwnershipEvent
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListByActorWindow(ctx context.Context, actor uuid.UUID, firstItemID, lastItemID int64) ([]models.OwnershipEvent, error) {
	var events []models.OwnershipEvent
	err := r.db.WithContext(ctx).
		Where("actor = ? AND item_id BETWEEN ? AND ?", actor, firstItemID, lastItemID).
		Order("item_id ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
