package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe maps one sellable product to the ingredients it consumes.
// Recipes version over time; the engine always resolves the recipe active
// at deduction time (IsActive = true), and the movement trail captures the
// quantities that were actually applied.
type Recipe struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID"`
}

func (Recipe) TableName() string { return "recipes" }

// RecipeIngredient is one line of a recipe: how much of one inventory item
// a single unit of the product consumes. QuantityPerUnit must be > 0.
type RecipeIngredient struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecipeID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Unit            string          `gorm:"not null"`
	CreatedAt       time.Time

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}

func (RecipeIngredient) TableName() string { return "recipe_ingredients" }
