package repository

import (
	"context"
	"errors"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStaleStock is returned when a guarded update finds the row changed
// since it was read. The deduction engine re-reads and retries; it never
// blind-writes over a counter another sale may have touched.
var ErrStaleStock = errors.New("stock changed since read")

// StockUpdate is one row of an atomic batch write: set the item to
// NewQuantity, but only if it still holds Expected.
type StockUpdate struct {
	ItemID      uuid.UUID
	Expected    decimal.Decimal
	NewQuantity decimal.Decimal
}

// InventoryItemRepository is the store adapter for the one contended
// resource in the system, quantity_on_hand.
type InventoryItemRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)

	// GetManyForStore reads every referenced item in a single round trip.
	GetManyForStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]model.InventoryItem, error)

	// AtomicBatchUpdate applies every update all-or-nothing. Each row is
	// guarded by its Expected quantity; any mismatch rolls the whole batch
	// back and returns ErrStaleStock. The applied slice names rows that
	// were written and NOT rolled back — always empty for a transactional
	// store, possibly non-empty for a store without multi-row atomicity,
	// in which case the caller must compensate.
	AtomicBatchUpdate(ctx context.Context, updates []StockUpdate) (applied []uuid.UUID, err error)

	// AddQuantity applies a signed delta in a single guarded statement.
	// Used by the reversal path: restoring by delta composes correctly
	// with any deductions that happened in between.
	AddQuantity(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type inventoryItemRepo struct{ db *gorm.DB }

func NewInventoryItemRepository(db *gorm.DB) InventoryItemRepository {
	return &inventoryItemRepo{db: db}
}

func (r *inventoryItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	return &item, err
}

func (r *inventoryItemRepo) GetManyForStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&items).Error
	return items, err
}

func (r *inventoryItemRepo) AtomicBatchUpdate(ctx context.Context, updates []StockUpdate) ([]uuid.UUID, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			res := tx.Model(&model.InventoryItem{}).
				Where("id = ? AND quantity_on_hand = ?", u.ItemID, u.Expected).
				Update("quantity_on_hand", u.NewQuantity)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleStock
			}
		}
		return nil
	})
	// The transaction rolls back as a unit, so nothing stays applied.
	return nil, err
}

func (r *inventoryItemRepo) AddQuantity(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Update("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryItemRepo) DB() *gorm.DB { return r.db }
