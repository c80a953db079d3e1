package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/infra"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deductionFixture struct {
	items     *stubItemRepo
	recipes   *stubRecipeRepo
	movements *stubMovementRepo
	audits    *stubAuditRepo
	svc       DeductionService
	storeID   uuid.UUID
}

func newDeductionFixture() *deductionFixture {
	f := &deductionFixture{
		items:     newStubItemRepo(),
		recipes:   newStubRecipeRepo(),
		movements: newStubMovementRepo(),
		audits:    newStubAuditRepo(),
		storeID:   uuid.New(),
	}
	resolver := NewRecipeResolver(f.recipes)
	availability := NewAvailabilityService(f.items, resolver)
	// Short backoff keeps the contention tests fast.
	policy := infra.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	f.svc = NewDeductionService(resolver, availability, f.items, f.movements, f.audits, nil, policy)
	return f
}

func (f *deductionFixture) request(productID uuid.UUID, qty int) DeductionRequest {
	return DeductionRequest{
		TransactionID: uuid.New(),
		StoreID:       f.storeID,
		Items:         []dto.SaleLineItem{{ProductID: productID.String(), QuantitySold: qty}},
	}
}

func TestDeduct_HappyPath(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	req := f.request(productID, 2)
	actorID := uuid.New()
	result, err := f.svc.Deduct(context.Background(), req, actorID)
	require.NoError(t, err)
	require.True(t, result.Success)

	// 10 on hand, 3 per unit, 2 sold: 6 deducted, 4 left.
	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(4)))

	require.Len(t, result.DeductedLines, 1)
	line := result.DeductedLines[0]
	assert.True(t, line.QuantityDeducted.Equal(decimal.NewFromInt(6)))
	assert.True(t, line.PreviousQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, line.NewQuantity.Equal(decimal.NewFromInt(4)))
	assert.False(t, line.Clamped)

	trail := f.movements.byItem(batter.ID)
	require.Len(t, trail, 1)
	m := trail[0]
	assert.Equal(t, model.MovementSale, m.MovementType)
	assert.True(t, m.QuantityChange.Equal(decimal.NewFromInt(-6)))
	assert.True(t, m.PreviousQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, m.NewQuantity.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, req.TransactionID, m.ReferenceID)
	assert.Equal(t, actorID, m.ActorID)

	require.Len(t, f.audits.audits, 1)
	audit := f.audits.audits[0]
	assert.Equal(t, model.SyncStatusSuccess, audit.Status)
	assert.Equal(t, req.TransactionID, audit.TransactionID)
	assert.Equal(t, 1, audit.ItemCount)
}

func TestDeduct_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	// 4 units need 12 > 10 on hand.
	_, err := f.svc.Deduct(context.Background(), f.request(productID, 4), uuid.New())

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortfalls, 1)
	assert.True(t, insufficient.Shortfalls[0].Required.Equal(decimal.NewFromInt(12)))
	assert.True(t, insufficient.Shortfalls[0].Available.Equal(decimal.NewFromInt(10)))

	// Rejection means zero effect: no quantity change, no movements, no audit.
	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.movements.byItem(batter.ID))
	assert.Empty(t, f.audits.audits)
}

func TestDeduct_OverdrawClampsAtZero(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	req := f.request(productID, 4)
	req.AllowOverdraw = true
	result, err := f.svc.Deduct(context.Background(), req, uuid.New())
	require.NoError(t, err)
	require.True(t, result.Success)

	// Overdraw deducts what exists and floors at zero, never negative.
	assert.True(t, f.items.quantity(batter.ID).IsZero())
	require.Len(t, result.DeductedLines, 1)
	assert.True(t, result.DeductedLines[0].Clamped)
	assert.True(t, result.DeductedLines[0].QuantityDeducted.Equal(decimal.NewFromInt(10)))
	assert.NotEmpty(t, result.Issues)

	trail := f.movements.byItem(batter.ID)
	require.Len(t, trail, 1)
	assert.True(t, trail[0].QuantityChange.Equal(decimal.NewFromInt(-10)))
	assert.True(t, trail[0].NewQuantity.IsZero())
}

func TestDeduct_RetriesOnStaleStock(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	// First write attempt hits contention; the retry re-plans and lands.
	f.items.failAtomic = repository.ErrStaleStock

	result, err := f.svc.Deduct(context.Background(), f.request(productID, 2), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(4)))
}

func TestDeduct_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	// Two sales of 2 units each want 12 total against 10 on hand. Exactly
	// one may win; the loser re-plans against fresh stock and is refused.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Deduct(context.Background(), f.request(productID, 2), uuid.New())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(4)),
		"final stock = %s", f.items.quantity(batter.ID))
}

func TestDeduct_PartialWriteIsCompensated(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	syrup := seedItem(f.items, f.storeID, "Maple Syrup", "ml", 500, 50)
	productID := uuid.New()
	seedRecipe(f.recipes, productID,
		recipeLine(batter, 1, "pcs"),
		recipeLine(syrup, 30, "ml"),
	)

	// The store applies one row, then fails without rolling back. The
	// engine must restore the applied row before surfacing the error.
	f.items.failAtomic = errStoreDown
	f.items.partialApply = 1

	_, err := f.svc.Deduct(context.Background(), f.request(productID, 2), uuid.New())

	var storeErr *StoreWriteError
	require.ErrorAs(t, err, &storeErr)
	assert.True(t, storeErr.Retryable)

	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, f.items.quantity(syrup.ID).Equal(decimal.NewFromInt(500)))
	assert.Empty(t, f.movements.byItem(batter.ID))
	assert.Empty(t, f.movements.byItem(syrup.ID))
}

func TestDeduct_AvailabilityReadFailureNamesTheRead(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	f.items.failGetMany = errStoreDown

	_, err := f.svc.Deduct(context.Background(), f.request(productID, 2), uuid.New())

	var storeErr *StoreWriteError
	require.ErrorAs(t, err, &storeErr)
	assert.True(t, storeErr.Retryable)
	// The fault happened before any write; the message must say so.
	assert.Contains(t, err.Error(), "availability read")
	assert.ErrorIs(t, err, errStoreDown)

	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.movements.byItem(batter.ID))
}

func TestDeduct_MovementFailureDoesNotFailSale(t *testing.T) {
	f := newDeductionFixture()
	batter := seedItem(f.items, f.storeID, "Croffle Batter", "pcs", 10, 2)
	productID := uuid.New()
	seedRecipe(f.recipes, productID, recipeLine(batter, 3, "pcs"))

	f.movements.failAppend = errStoreDown

	result, err := f.svc.Deduct(context.Background(), f.request(productID, 2), uuid.New())
	require.NoError(t, err)
	require.True(t, result.Success)

	// Stock moved even though the trail write failed.
	assert.True(t, f.items.quantity(batter.ID).Equal(decimal.NewFromInt(4)))
	assert.Contains(t, result.Issues, "audit trail write deferred")

	// The failure is recorded as a failed sync outcome for the monitor.
	require.Len(t, f.audits.audits, 1)
	assert.Equal(t, model.SyncStatusFailed, f.audits.audits[0].Status)
	assert.NotEmpty(t, f.audits.audits[0].ErrorDetail)
}

func TestDeduct_SharedIngredientSingleWrite(t *testing.T) {
	f := newDeductionFixture()
	sugar := seedItem(f.items, f.storeID, "Sugar", "g", 100, 10)
	latte := uuid.New()
	mocha := uuid.New()
	seedRecipe(f.recipes, latte, recipeLine(sugar, 10, "g"))
	seedRecipe(f.recipes, mocha, recipeLine(sugar, 15, "g"))

	req := DeductionRequest{
		TransactionID: uuid.New(),
		StoreID:       f.storeID,
		Items: []dto.SaleLineItem{
			{ProductID: latte.String(), QuantitySold: 2},
			{ProductID: mocha.String(), QuantitySold: 2},
		},
	}
	result, err := f.svc.Deduct(context.Background(), req, uuid.New())
	require.NoError(t, err)
	require.True(t, result.Success)

	// Demand across products aggregates into one deduction and one movement.
	assert.True(t, f.items.quantity(sugar.ID).Equal(decimal.NewFromInt(50)))
	require.Len(t, result.DeductedLines, 1)
	assert.True(t, result.DeductedLines[0].QuantityDeducted.Equal(decimal.NewFromInt(50)))
	assert.Len(t, f.movements.byItem(sugar.ID), 1)
}
