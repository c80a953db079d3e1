package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is the read model the validation phase consults. Catalog editing
// happens in the back-office CRUD surfaces; this engine only needs to know
// whether a sold product exists, belongs to the store, and is sellable.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"index;not null"`
	SKU       string    `gorm:"uniqueIndex;not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Product) TableName() string { return "products" }
