package dto

import "github.com/shopspring/decimal"

// ReversalFailure identifies one item whose restoration failed; the caller
// retries just this subset.
type ReversalFailure struct {
	InventoryItemID string `json:"inventory_item_id"`
	MovementID      string `json:"movement_id"`
	Reason          string `json:"reason"`
}

// RestoredItem documents one successful inverse-delta restoration.
type RestoredItem struct {
	InventoryItemID  string          `json:"inventory_item_id"`
	QuantityRestored decimal.Decimal `json:"quantity_restored"`
}

// ReversalResult is per-item and partial: already-restored items stay
// restored even when later items fail.
type ReversalResult struct {
	TransactionID string            `json:"transaction_id"`
	ItemsRestored int               `json:"items_restored"`
	Restored      []RestoredItem    `json:"restored,omitempty"`
	Failures      []ReversalFailure `json:"failures,omitempty"`
	AlreadyDone   int               `json:"already_reversed,omitempty"`
	FullyRestored bool              `json:"fully_restored"`
}
