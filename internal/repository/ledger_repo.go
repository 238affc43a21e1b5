package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/liga-go-api/internal/models"
)

// LedgerRepository applies balance mutations and their ledger entries as one
// rollback unit. The increment uses a single UPDATE ... RETURNING so the
// snapshot on the ledger row is the post-update value from the mutating
// statement itself. A duplicate ledger key rolls back the whole savepoint —
// increment included — and the concurrently created row is returned instead,
// so retries can never double-apply a balance change.
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository
	AddXP(ctx context.Context, entry *models.XPTransaction) (bool, error)
	AddCredits(ctx context.Context, entry *models.CreditTransaction) (bool, error)
	LatestXPBalance(ctx context.Context, userID uint) (int64, error)
	LatestCreditBalance(ctx context.Context, userID uint) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository instantiates the repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}

// AddXP atomically increments the user's XP balance and appends the ledger
// entry. Returns false when an identical entry already existed; in that case
// the existing row is copied into entry and no balance change is applied.
func (r *ledgerRepository) AddXP(ctx context.Context, entry *models.XPTransaction) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		result := tx.Model(&user).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "xp_balance"}}}).
			Where("id = ?", entry.UserID).
			Update("xp_balance", gorm.Expr("xp_balance + ?", entry.Amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		entry.BalanceAfter = user.XPBalance
		return tx.Create(entry).Error
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	// A concurrent writer won the race; the savepoint already undid the
	// increment for this attempt.
	var existing models.XPTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", entry.UserID).
		Where("source_type = ?", entry.SourceType).
		Where("source_id = ?", entry.SourceID).
		Where("type = ?", entry.Type).
		First(&existing).Error; err != nil {
		return false, err
	}

	*entry = existing
	return false, nil
}

// AddCredits mirrors AddXP against the credit balance, deduplicated by the
// opaque idempotency key.
func (r *ledgerRepository) AddCredits(ctx context.Context, entry *models.CreditTransaction) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		result := tx.Model(&user).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "credit_balance"}}}).
			Where("id = ?", entry.UserID).
			Update("credit_balance", gorm.Expr("credit_balance + ?", entry.Amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		entry.BalanceAfter = user.CreditBalance
		return tx.Create(entry).Error
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	var existing models.CreditTransaction
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", entry.IdempotencyKey).
		First(&existing).Error; err != nil {
		return false, err
	}

	*entry = existing
	return false, nil
}

// LatestXPBalance reads the snapshot from the most recent ledger row.
func (r *ledgerRepository) LatestXPBalance(ctx context.Context, userID uint) (int64, error) {
	var entry models.XPTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

// LatestCreditBalance reads the snapshot from the most recent ledger row.
func (r *ledgerRepository) LatestCreditBalance(ctx context.Context, userID uint) (int64, error) {
	var entry models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}
