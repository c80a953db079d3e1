package repository

import (
	"context"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing movements.
type MovementFilter struct {
	InventoryItemID *uuid.UUID
	MovementType    string
	Page            int
	Limit           int
}

// MovementRepository is the append-only audit trail. Records are never
// updated or deleted; a reversal is a fresh record.
type MovementRepository interface {
	AppendBatch(ctx context.Context, movements []model.InventoryMovement) error
	FindByReference(ctx context.Context, referenceID uuid.UUID, movementType string) ([]model.InventoryMovement, error)
	List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) AppendBatch(ctx context.Context, movements []model.InventoryMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&movements).Error
}

func (r *movementRepo) FindByReference(ctx context.Context, referenceID uuid.UUID, movementType string) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	q := r.db.WithContext(ctx).Where("reference_id = ?", referenceID)
	if movementType != "" {
		q = q.Where("movement_type = ?", movementType)
	}
	err := q.Order("created_at ASC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Preload("InventoryItem")
	if filter.InventoryItemID != nil {
		q = q.Where("inventory_item_id = ?", *filter.InventoryItemID)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.InventoryMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}
