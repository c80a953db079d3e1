package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeResolver maps sold products to the ingredient quantities they
// consume. Two products sharing an ingredient aggregate into a single
// demand figure, which is what makes downstream batching correct.
type RecipeResolver interface {
	ResolveDemand(ctx context.Context, items []dto.SaleLineItem) (IngredientDemand, error)
}

// IngredientDemand is total quantity needed per inventory item, in the
// item's own stocked unit.
type IngredientDemand map[uuid.UUID]decimal.Decimal

type recipeResolver struct {
	recipes repository.RecipeRepository
}

func NewRecipeResolver(recipes repository.RecipeRepository) RecipeResolver {
	return &recipeResolver{recipes: recipes}
}

func (s *recipeResolver) ResolveDemand(ctx context.Context, items []dto.SaleLineItem) (IngredientDemand, error) {
	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, &PreconditionError{Reason: fmt.Sprintf("invalid product_id %q", item.ProductID)}
		}
		if item.QuantitySold <= 0 {
			return nil, &PreconditionError{Reason: fmt.Sprintf("quantity_sold must be positive for product %s", item.ProductID)}
		}
		productIDs = append(productIDs, pid)
	}

	recipes, err := s.recipes.FindActiveByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID]*model.Recipe, len(recipes))
	for i := range recipes {
		byProduct[recipes[i].ProductID] = &recipes[i]
	}

	demand := make(IngredientDemand)
	for _, item := range items {
		pid, _ := uuid.Parse(item.ProductID)
		recipe, ok := byProduct[pid]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrRecipeNotFound)
		}
		sold := decimal.NewFromInt(int64(item.QuantitySold))
		for _, line := range recipe.Ingredients {
			if !line.QuantityPerUnit.IsPositive() {
				return nil, &PreconditionError{
					Reason: fmt.Sprintf("recipe %s has non-positive quantity for item %s", recipe.ID, line.InventoryItemID),
				}
			}
			needed := line.QuantityPerUnit.Mul(sold)
			// Convert the recipe's unit to the stocked unit. A line whose
			// stocked item did not load carries no unit to convert to, and
			// an ambiguous conversion is a hard error — never a silent 1:1.
			if line.InventoryItem == nil {
				return nil, &PreconditionError{
					Reason: fmt.Sprintf("recipe %s references inventory item %s with no stocked unit", recipe.ID, line.InventoryItemID),
				}
			}
			converted, err := convertUnit(needed, line.Unit, line.InventoryItem.Unit)
			if err != nil {
				return nil, err
			}
			demand[line.InventoryItemID] = demand[line.InventoryItemID].Add(converted)
		}
	}
	return demand, nil
}

// factors to the base unit of each convertible family.
var unitFactors = map[string]struct {
	family string
	factor decimal.Decimal
}{
	"g":  {"mass", decimal.NewFromInt(1)},
	"kg": {"mass", decimal.NewFromInt(1000)},
	"ml": {"volume", decimal.NewFromInt(1)},
	"l":  {"volume", decimal.NewFromInt(1000)},
}

// convertUnit converts qty from one unit to another. Identical units pass
// through; metric mass and volume pairs convert; everything else fails.
func convertUnit(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == to {
		return qty, nil
	}
	f, okF := unitFactors[from]
	t, okT := unitFactors[to]
	if !okF || !okT || f.family != t.family {
		return decimal.Zero, &PreconditionError{
			Reason: fmt.Sprintf("no unit conversion from %q to %q", from, to),
		}
	}
	return qty.Mul(f.factor).Div(t.factor), nil
}
