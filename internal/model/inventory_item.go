package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked ingredient tracked per store.
//
// QuantityOnHand is the single contended counter in the system. It is only
// ever written through the deduction engine's batched write path or the
// reversal service's delta restore — never via ad hoc single-row updates —
// so the movement trail stays complete.
type InventoryItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_inventory_store_item"`
	Name           string          `gorm:"index;not null"`
	Unit           string          `gorm:"not null;default:'unit'"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	MinimumLevel   decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (InventoryItem) TableName() string { return "inventory_items" }
