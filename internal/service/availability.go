package service

import (
	"context"
	"sort"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
)

// AvailabilityService compares aggregated ingredient demand against current
// stock for one store.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, storeID uuid.UUID, demand IngredientDemand) (*dto.AvailabilityReport, error)
	// CheckCart resolves a cart's demand and checks it in one call — the
	// shape exposed over HTTP.
	CheckCart(ctx context.Context, storeID uuid.UUID, items []dto.SaleLineItem) (*dto.AvailabilityReport, error)
}

type availabilityService struct {
	items    repository.InventoryItemRepository
	resolver RecipeResolver
}

func NewAvailabilityService(items repository.InventoryItemRepository, resolver RecipeResolver) AvailabilityService {
	return &availabilityService{items: items, resolver: resolver}
}

func (s *availabilityService) CheckCart(ctx context.Context, storeID uuid.UUID, items []dto.SaleLineItem) (*dto.AvailabilityReport, error) {
	demand, err := s.resolver.ResolveDemand(ctx, items)
	if err != nil {
		return nil, err
	}
	return s.CheckAvailability(ctx, storeID, demand)
}

func (s *availabilityService) CheckAvailability(ctx context.Context, storeID uuid.UUID, demand IngredientDemand) (*dto.AvailabilityReport, error) {
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	// Deterministic order keeps reports and logs stable.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	// One query for N items, never N queries.
	stocked, err := s.items.GetManyForStore(ctx, storeID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.InventoryItem, len(stocked))
	for i := range stocked {
		byID[stocked[i].ID] = &stocked[i]
	}

	report := &dto.AvailabilityReport{Sufficient: true}
	for _, id := range ids {
		required := demand[id]
		item, ok := byID[id]
		if !ok {
			// Absent from this store's inventory means "cannot be
			// fulfilled," not "system fault."
			report.Sufficient = false
			report.Shortfalls = append(report.Shortfalls, dto.Shortfall{
				InventoryItemID: id.String(),
				Required:        required,
			})
			continue
		}
		if item.QuantityOnHand.LessThan(required) {
			report.Sufficient = false
			report.Shortfalls = append(report.Shortfalls, dto.Shortfall{
				InventoryItemID: id.String(),
				ItemName:        item.Name,
				Required:        required,
				Available:       item.QuantityOnHand,
			})
			continue
		}
		remaining := item.QuantityOnHand.Sub(required)
		if remaining.LessThanOrEqual(item.MinimumLevel) {
			report.LowStockWarning = append(report.LowStockWarning, dto.LowStockWarning{
				InventoryItemID: id.String(),
				ItemName:        item.Name,
				Remaining:       remaining,
				MinimumLevel:    item.MinimumLevel,
			})
		}
	}
	return report, nil
}
