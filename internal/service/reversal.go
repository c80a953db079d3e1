package service

import (
	"context"
	"fmt"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReversalService undoes a prior deduction using the movement trail as its
// source of truth. It is invoked out of band when a sale record is voided.
type ReversalService interface {
	Reverse(ctx context.Context, transactionID, actorID uuid.UUID) (*dto.ReversalResult, error)
}

type reversalService struct {
	items     repository.InventoryItemRepository
	movements repository.MovementRepository
}

func NewReversalService(items repository.InventoryItemRepository, movements repository.MovementRepository) ReversalService {
	return &reversalService{items: items, movements: movements}
}

// Reverse restores stock by applying the inverse delta of each sale
// movement — never by overwriting with the stored previous-quantity
// snapshot, which would silently erase any deduction that touched the same
// item in between. Restoration is per item, not all-or-nothing: each item's
// correctness is independent, so already-restored items stay restored and
// the caller retries only the failed subset.
func (s *reversalService) Reverse(ctx context.Context, transactionID, actorID uuid.UUID) (*dto.ReversalResult, error) {
	sales, err := s.movements.FindByReference(ctx, transactionID, model.MovementSale)
	if err != nil {
		return nil, &StoreWriteError{Err: err, Retryable: true}
	}
	if len(sales) == 0 {
		return nil, &PreconditionError{Reason: fmt.Sprintf("no sale movements for transaction %s", transactionID)}
	}

	// A retried reversal must not double-restore. The skip is keyed on the
	// originating sale movement, not the item: one transaction can hold
	// several sale movements for the same item and each needs its own
	// reversal record.
	reversals, err := s.movements.FindByReference(ctx, transactionID, model.MovementReversal)
	if err != nil {
		return nil, &StoreWriteError{Err: err, Retryable: true}
	}
	alreadyReversed := make(map[uuid.UUID]bool, len(reversals))
	for _, m := range reversals {
		if m.ReversedMovementID != nil {
			alreadyReversed[*m.ReversedMovementID] = true
		}
	}

	result := &dto.ReversalResult{TransactionID: transactionID.String()}
	for _, sale := range sales {
		if alreadyReversed[sale.ID] {
			result.AlreadyDone++
			continue
		}

		restore := sale.QuantityChange.Neg() // sale changes are negative
		if err := s.items.AddQuantity(ctx, sale.InventoryItemID, restore); err != nil {
			result.Failures = append(result.Failures, dto.ReversalFailure{
				InventoryItemID: sale.InventoryItemID.String(),
				MovementID:      sale.ID.String(),
				Reason:          err.Error(),
			})
			continue
		}

		// Fresh snapshot for the reversal record: read the quantity back
		// from the store instead of deriving it from the stale sale record.
		// A failed read-back degrades the snapshot; the record says so.
		notes := fmt.Sprintf("reversal of sale %s", transactionID)
		previous := restore.Neg() // fallback keeps new = previous + change consistent
		if item, err := s.items.GetByID(ctx, sale.InventoryItemID); err == nil {
			previous = item.QuantityOnHand.Sub(restore)
		} else {
			notes += "; stock read-back failed, snapshot unverified"
		}

		movement := model.NewMovement(
			sale.InventoryItemID, model.MovementReversal, restore, previous,
			transactionID, actorID, notes)
		saleID := sale.ID
		movement.ReversedMovementID = &saleID
		if err := s.movements.AppendBatch(ctx, []model.InventoryMovement{movement}); err != nil {
			// Stock is restored; only the record is missing. Same priority
			// order as deduction: inventory correctness over audit
			// completeness. The item still counts as restored.
			log.Warn().Err(err).
				Str("item_id", sale.InventoryItemID.String()).
				Msg("reversal movement append failed")
		}

		result.Restored = append(result.Restored, dto.RestoredItem{
			InventoryItemID:  sale.InventoryItemID.String(),
			QuantityRestored: restore,
		})
		result.ItemsRestored++
	}

	result.FullyRestored = len(result.Failures) == 0
	return result, nil
}
