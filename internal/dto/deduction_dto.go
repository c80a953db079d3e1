package dto

import (
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleLineItem is one cart line: product and how many units were sold.
type SaleLineItem struct {
	ProductID    string `json:"product_id"    validate:"required,uuid"`
	QuantitySold int    `json:"quantity_sold" validate:"required,min=1"`
}

// ExecuteSaleRequest is bound from POST /v1/sales/execute.
type ExecuteSaleRequest struct {
	TransactionID string         `json:"transaction_id" validate:"required,uuid"`
	StoreID       string         `json:"store_id"       validate:"required,uuid"`
	Items         []SaleLineItem `json:"items"          validate:"required,min=1,dive"`
	// AllowOverdraw lets the sale proceed past a shortfall; the deduction is
	// still floor-clamped at zero (business policy, never a negative counter).
	AllowOverdraw bool `json:"allow_overdraw"`
}

// ─── Result DTOs ─────────────────────────────────────────────────────────────

// DeductedLine reports one inventory item's applied change.
type DeductedLine struct {
	InventoryItemID  string          `json:"inventory_item_id"`
	ItemName         string          `json:"item_name"`
	QuantityDeducted decimal.Decimal `json:"quantity_deducted"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	// Clamped is true when the requested deduction exceeded on-hand stock
	// and the new quantity was floored at zero.
	Clamped bool `json:"clamped,omitempty"`
}

// DeductionResult is the outcome of one atomic deduction batch.
type DeductionResult struct {
	Success       bool           `json:"success"`
	TransactionID string         `json:"transaction_id"`
	DeductedLines []DeductedLine `json:"deducted_lines"`
	Issues        []string       `json:"issues,omitempty"`
}

// SaleResult aggregates per-batch deduction outcomes for a whole cart.
// CommittedBatches tells the caller exactly which inventory batches were
// applied; a mid-cart failure never invalidates prior committed batches.
type SaleResult struct {
	TransactionID    string         `json:"transaction_id"`
	Success          bool           `json:"success"`
	DeductedLines    []DeductedLine `json:"deducted_lines"`
	CommittedBatches []int          `json:"committed_batches"`
	FailedBatch      *int           `json:"failed_batch,omitempty"`
	Issues           []string       `json:"issues,omitempty"`
}

// ─── Progress reporting ──────────────────────────────────────────────────────

// Orchestration stages surfaced through progress callbacks.
const (
	StageValidation = "validation"
	StageInventory  = "inventory"
)

// ProgressUpdate is emitted after every processed batch.
type ProgressUpdate struct {
	Stage          string `json:"stage"`
	ItemsCompleted int    `json:"items_completed"`
	ItemsTotal     int    `json:"items_total"`
}
