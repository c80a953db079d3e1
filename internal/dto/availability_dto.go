package dto

import "github.com/shopspring/decimal"

// CheckAvailabilityRequest is bound from POST /v1/availability/check.
type CheckAvailabilityRequest struct {
	StoreID string         `json:"store_id" validate:"required,uuid"`
	Items   []SaleLineItem `json:"items"    validate:"required,min=1,dive"`
}

// Shortfall describes one ingredient the store cannot fully supply.
// An item absent from the store's inventory is a shortfall with
// available = 0, not a fault.
type Shortfall struct {
	InventoryItemID string          `json:"inventory_item_id"`
	ItemName        string          `json:"item_name,omitempty"`
	Required        decimal.Decimal `json:"required"`
	Available       decimal.Decimal `json:"available"`
}

// LowStockWarning flags items that would drop to or below their minimum
// level if the cart were fulfilled.
type LowStockWarning struct {
	InventoryItemID string          `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	Remaining       decimal.Decimal `json:"remaining"`
	MinimumLevel    decimal.Decimal `json:"minimum_level"`
}

// AvailabilityReport is the result of comparing aggregated demand against
// current stock for one store.
type AvailabilityReport struct {
	Sufficient      bool              `json:"sufficient"`
	Shortfalls      []Shortfall       `json:"shortfalls,omitempty"`
	LowStockWarning []LowStockWarning `json:"low_stock_warnings,omitempty"`
}
