package funds

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lotmarkethq/lotmarket-backend/pkg/db/models"
	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

// Service is the currency ledger: per-actor balances in integer cents.
// Transfers are all-or-nothing and run inside the caller's transaction so a
// failed settlement leaves no partial movement behind.
type Service interface {
	BalanceOf(ctx context.Context, tx *gorm.DB, actor uuid.UUID) (int64, error)
	Deposit(ctx context.Context, tx *gorm.DB, actor uuid.UUID, amountCents int64) error
	Transfer(ctx context.Context, tx *gorm.DB, from, to uuid.UUID, amountCents int64) error
}

type service struct {
	db *gorm.DB
}

// NewService returns a funds service bound to the provided database.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *service) BalanceOf(ctx context.Context, tx *gorm.DB, actor uuid.UUID) (int64, error) {
	var balance models.AccountBalance
	err := s.conn(tx).WithContext(ctx).Where("actor_id = ?", actor).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.BalanceCents, nil
}

func (s *service) Deposit(ctx context.Context, tx *gorm.DB, actor uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}
	return credit(ctx, s.conn(tx), actor, amountCents)
}

func (s *service) Transfer(ctx context.Context, tx *gorm.DB, from, to uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer endpoints must differ")
	}

	conn := s.conn(tx).WithContext(ctx)

	// The guarded UPDATE both debits and enforces the balance floor; zero
	// rows affected means the payer cannot cover the amount.
	res := conn.Model(&models.AccountBalance{}).
		Where("actor_id = ? AND balance_cents >= ?", from, amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "payer balance does not cover the amount")
	}

	return credit(ctx, s.conn(tx), to, amountCents)
}

func credit(ctx context.Context, conn *gorm.DB, actor uuid.UUID, amountCents int64) error {
	res := conn.WithContext(ctx).Model(&models.AccountBalance{}).
		Where("actor_id = ?", actor).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&models.AccountBalance{
		ActorID:      actor,
		BalanceCents: amountCents,
	}).Error
}
