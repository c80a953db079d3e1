package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory repository stubs ───────────────────────────────────────────────

type stubItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.InventoryItem

	// failure injection
	failAtomic   error
	partialApply int // with failAtomic set: apply this many rows first (non-transactional store)
	failAdd      map[uuid.UUID]error
	failAddOn    map[uuid.UUID]int // fail the Nth AddQuantity call for this item
	addCalls     map[uuid.UUID]int
	failGetMany  error
	failGetByID  error
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{
		items:     make(map[uuid.UUID]*model.InventoryItem),
		failAdd:   make(map[uuid.UUID]error),
		failAddOn: make(map[uuid.UUID]int),
		addCalls:  make(map[uuid.UUID]int),
	}
}

func (r *stubItemRepo) GetByID(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGetByID != nil {
		return nil, r.failGetByID
	}
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *stubItemRepo) GetManyForStore(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGetMany != nil {
		return nil, r.failGetMany
	}
	var result []model.InventoryItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.StoreID == storeID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *stubItemRepo) AtomicBatchUpdate(_ context.Context, updates []repository.StockUpdate) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAtomic != nil {
		var applied []uuid.UUID
		for i := 0; i < r.partialApply && i < len(updates); i++ {
			u := updates[i]
			if item, ok := r.items[u.ItemID]; ok && item.QuantityOnHand.Equal(u.Expected) {
				item.QuantityOnHand = u.NewQuantity
				applied = append(applied, u.ItemID)
			}
		}
		err := r.failAtomic
		r.failAtomic = nil // fail once, like a transient outage
		return applied, err
	}

	// Check every guard before writing anything: all-or-nothing.
	for _, u := range updates {
		item, ok := r.items[u.ItemID]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		if !item.QuantityOnHand.Equal(u.Expected) {
			return nil, repository.ErrStaleStock
		}
	}
	for _, u := range updates {
		r.items[u.ItemID].QuantityOnHand = u.NewQuantity
	}
	return nil, nil
}

func (r *stubItemRepo) AddQuantity(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addCalls[id]++
	if err := r.failAdd[id]; err != nil {
		return err
	}
	if n, ok := r.failAddOn[id]; ok && n == r.addCalls[id] {
		return errStoreDown
	}
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.QuantityOnHand = item.QuantityOnHand.Add(delta)
	return nil
}

func (r *stubItemRepo) DB() *gorm.DB { return nil }

func (r *stubItemRepo) quantity(id uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].QuantityOnHand
}

var _ repository.InventoryItemRepository = (*stubItemRepo)(nil)

type stubRecipeRepo struct {
	recipes map[uuid.UUID]model.Recipe // by product id
	err     error
}

func newStubRecipeRepo() *stubRecipeRepo {
	return &stubRecipeRepo{recipes: make(map[uuid.UUID]model.Recipe)}
}

func (r *stubRecipeRepo) FindActiveByProductIDs(_ context.Context, productIDs []uuid.UUID) ([]model.Recipe, error) {
	if r.err != nil {
		return nil, r.err
	}
	var result []model.Recipe
	seen := make(map[uuid.UUID]bool)
	for _, pid := range productIDs {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if recipe, ok := r.recipes[pid]; ok {
			result = append(result, recipe)
		}
	}
	return result, nil
}

var _ repository.RecipeRepository = (*stubRecipeRepo)(nil)

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindByIDs(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var result []model.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok && p.StoreID == storeID {
			result = append(result, *p)
		}
	}
	return result, nil
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

type stubMovementRepo struct {
	mu         sync.Mutex
	movements  []model.InventoryMovement
	failAppend error
}

func newStubMovementRepo() *stubMovementRepo { return &stubMovementRepo{} }

func (r *stubMovementRepo) AppendBatch(_ context.Context, movements []model.InventoryMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	for i := range movements {
		if movements[i].ID == uuid.Nil {
			movements[i].ID = uuid.New()
		}
		if movements[i].CreatedAt.IsZero() {
			movements[i].CreatedAt = time.Now()
		}
	}
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *stubMovementRepo) FindByReference(_ context.Context, referenceID uuid.UUID, movementType string) ([]model.InventoryMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.InventoryMovement
	for _, m := range r.movements {
		if m.ReferenceID == referenceID && (movementType == "" || m.MovementType == movementType) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *stubMovementRepo) List(_ context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.InventoryMovement
	for _, m := range r.movements {
		if filter.InventoryItemID != nil && m.InventoryItemID != *filter.InventoryItemID {
			continue
		}
		if filter.MovementType != "" && m.MovementType != filter.MovementType {
			continue
		}
		result = append(result, m)
	}
	return result, int64(len(result)), nil
}

func (r *stubMovementRepo) byItem(itemID uuid.UUID) []model.InventoryMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.InventoryMovement
	for _, m := range r.movements {
		if m.InventoryItemID == itemID {
			result = append(result, m)
		}
	}
	return result
}

var _ repository.MovementRepository = (*stubMovementRepo)(nil)

type stubAuditRepo struct {
	mu     sync.Mutex
	audits []model.SyncAudit
	err    error
}

func newStubAuditRepo() *stubAuditRepo { return &stubAuditRepo{} }

func (r *stubAuditRepo) Append(_ context.Context, audit *model.SyncAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	r.audits = append(r.audits, *audit)
	return nil
}

func (r *stubAuditRepo) RecentWindow(_ context.Context, since time.Time, limit int) ([]model.SyncAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var result []model.SyncAudit
	for i := len(r.audits) - 1; i >= 0 && len(result) < limit; i-- {
		if r.audits[i].CreatedAt.After(since) {
			result = append(result, r.audits[i])
		}
	}
	return result, nil
}

var _ repository.SyncAuditRepository = (*stubAuditRepo)(nil)

// ── Seed helpers ─────────────────────────────────────────────────────────────

func seedItem(repo *stubItemRepo, storeID uuid.UUID, name, unit string, qty, minLevel float64) *model.InventoryItem {
	item := &model.InventoryItem{
		ID:             uuid.New(),
		StoreID:        storeID,
		Name:           name,
		Unit:           unit,
		QuantityOnHand: decimal.NewFromFloat(qty),
		MinimumLevel:   decimal.NewFromFloat(minLevel),
	}
	repo.items[item.ID] = item
	return item
}

func seedRecipe(repo *stubRecipeRepo, productID uuid.UUID, lines ...model.RecipeIngredient) {
	recipe := model.Recipe{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      "recipe",
		IsActive:  true,
	}
	for i := range lines {
		lines[i].RecipeID = recipe.ID
	}
	recipe.Ingredients = lines
	repo.recipes[productID] = recipe
}

func recipeLine(item *model.InventoryItem, perUnit float64, unit string) model.RecipeIngredient {
	return model.RecipeIngredient{
		ID:              uuid.New(),
		InventoryItemID: item.ID,
		QuantityPerUnit: decimal.NewFromFloat(perUnit),
		Unit:            unit,
		InventoryItem:   item,
	}
}

var errStoreDown = errors.New("store unreachable")
