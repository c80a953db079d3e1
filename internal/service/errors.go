package service

import (
	"errors"
	"fmt"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
)

// Sentinel errors for the deduction pipeline.
var (
	// ErrRecipeNotFound means a sold product has no active recipe. Whether
	// an unreciped product is sellable without inventory effects is caller
	// policy, not engine concern.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrHealthGateBlocked means the sync health monitor refused the sale.
	// Callers should surface a "temporarily unavailable" state, not a
	// per-item error.
	ErrHealthGateBlocked = errors.New("sales blocked by sync health gate")
)

// PreconditionError rejects malformed input before any write happens.
// Fully recoverable by the caller fixing the request.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return "precondition failed: " + e.Reason }

// InsufficientStockError is business-expected, not a fault. It carries the
// exact shortfall set so the caller can decide on partial fulfillment or
// backorder.
type InsufficientStockError struct {
	Shortfalls []dto.Shortfall
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortfalls))
}

// StoreWriteError is an infrastructure fault talking to the inventory
// store, on either the availability read or the multi-row write. The
// engine guarantees any partial write was rolled back before returning it,
// so the caller may retry the whole deduction.
type StoreWriteError struct {
	Err       error
	Retryable bool
}

func (e *StoreWriteError) Error() string { return "inventory store error: " + e.Err.Error() }

func (e *StoreWriteError) Unwrap() error { return e.Err }

// ValidationErrors aggregates every per-item validation failure for a
// whole-cart reject: the inventory phase never starts when any item fails.
type ValidationErrors struct {
	Items map[string]string // productID -> reason
}

func (e *ValidationErrors) Error() string {
	return fmt.Sprintf("cart validation failed for %d item(s)", len(e.Items))
}
