package repository

import (
	"context"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecipeRepository interface {
	// FindActiveByProductIDs loads the currently active recipe for every
	// given product in one query, each line carrying its stocked inventory
	// item so unit conversion has both units on hand. Products without an
	// active recipe are simply absent from the result.
	FindActiveByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.Recipe, error)
}

type recipeRepo struct{ db *gorm.DB }

func NewRecipeRepository(db *gorm.DB) RecipeRepository { return &recipeRepo{db: db} }

func (r *recipeRepo) FindActiveByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients.InventoryItem").
		Where("product_id IN ? AND is_active = true", productIDs).
		Find(&recipes).Error
	return recipes, err
}
