package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types. A reversal is always a fresh record — the original sale
// movement is never edited or deleted.
const (
	MovementSale       = "sale"
	MovementReversal   = "reversal"
	MovementAdjustment = "adjustment"
)

// InventoryMovement is one append-only audit entry for a quantity change.
// NewQuantity must equal PreviousQuantity + QuantityChange, and equals the
// item's quantity_on_hand at the moment the record was written: the record
// is a snapshot, not just a delta.
type InventoryMovement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	MovementType     string          `gorm:"not null;index"`
	QuantityChange   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	ReferenceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActorID          uuid.UUID       `gorm:"type:uuid;not null"`
	// ReversedMovementID links a reversal record to the exact sale movement
	// it undoes. One transaction can hold several sale movements for the
	// same item, so idempotency is per movement, not per item.
	ReversedMovementID *uuid.UUID `gorm:"type:uuid;index"`
	Notes              string
	CreatedAt          time.Time `gorm:"index"`

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}

func (InventoryMovement) TableName() string { return "inventory_movements" }

// NewMovement builds a movement whose snapshot fields are internally
// consistent (new = previous + change).
func NewMovement(itemID uuid.UUID, movementType string, change, previous decimal.Decimal, referenceID, actorID uuid.UUID, notes string) InventoryMovement {
	return InventoryMovement{
		InventoryItemID:  itemID,
		MovementType:     movementType,
		QuantityChange:   change,
		PreviousQuantity: previous,
		NewQuantity:      previous.Add(change),
		ReferenceID:      referenceID,
		ActorID:          actorID,
		Notes:            notes,
	}
}
