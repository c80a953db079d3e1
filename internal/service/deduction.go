package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/infra"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"
	"github.com/abs0914/croffle-store-sync-sub022/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DeductionRequest is the validated input for one atomic deduction batch.
type DeductionRequest struct {
	TransactionID uuid.UUID
	StoreID       uuid.UUID
	Items         []dto.SaleLineItem
	AllowOverdraw bool
}

// DeductionService turns a validated cart into one batched read, one atomic
// multi-row write, and an audit trail.
type DeductionService interface {
	Deduct(ctx context.Context, req DeductionRequest, actorID uuid.UUID) (*dto.DeductionResult, error)
}

type deductionService struct {
	resolver     RecipeResolver
	availability AvailabilityService
	items        repository.InventoryItemRepository
	movements    repository.MovementRepository
	audits       repository.SyncAuditRepository
	dispatcher   *worker.Dispatcher
	retry        infra.RetryPolicy
}

func NewDeductionService(
	resolver RecipeResolver,
	availability AvailabilityService,
	items repository.InventoryItemRepository,
	movements repository.MovementRepository,
	audits repository.SyncAuditRepository,
	dispatcher *worker.Dispatcher,
	retry infra.RetryPolicy,
) DeductionService {
	if retry.MaxAttempts <= 0 {
		retry = infra.DefaultRetryPolicy()
	}
	// Only contention on the guarded write is worth re-attempting here;
	// infrastructure faults are reported to the caller for a full retry.
	retry.Retryable = func(err error) bool {
		return errors.Is(err, repository.ErrStaleStock)
	}
	return &deductionService{
		resolver:     resolver,
		availability: availability,
		items:        items,
		movements:    movements,
		audits:       audits,
		dispatcher:   dispatcher,
		retry:        retry,
	}
}

// plannedLine is one item's computed change, captured before the write so
// movement records snapshot exactly what was applied.
type plannedLine struct {
	item     model.InventoryItem
	required decimal.Decimal
	newQty   decimal.Decimal
	clamped  bool
}

// Deduct implements the core algorithm:
//  1. resolve demand and check availability — fail fast with the shortfall
//     list before any write when overdraw is not allowed
//  2. batch-read current quantities in a single round trip
//  3. compute new quantities in memory, floor-clamped at zero
//  4. one atomic multi-row guarded write; contention re-reads and retries
//  5. best-effort movement append + sync audit row
func (s *deductionService) Deduct(ctx context.Context, req DeductionRequest, actorID uuid.UUID) (*dto.DeductionResult, error) {
	demand, err := s.resolver.ResolveDemand(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	report, err := s.availability.CheckAvailability(ctx, req.StoreID, demand)
	if err != nil {
		return nil, &StoreWriteError{Err: fmt.Errorf("availability read: %w", err), Retryable: true}
	}
	if !report.Sufficient && !req.AllowOverdraw {
		return nil, &InsufficientStockError{Shortfalls: report.Shortfalls}
	}

	result := &dto.DeductionResult{TransactionID: req.TransactionID.String()}

	var planned []plannedLine
	writeErr := s.retry.Do(ctx, func() error {
		lines, err := s.planDeduction(ctx, req, demand, result)
		if err != nil {
			return err
		}
		planned = lines

		updates := make([]repository.StockUpdate, 0, len(planned))
		for _, p := range planned {
			updates = append(updates, repository.StockUpdate{
				ItemID:      p.item.ID,
				Expected:    p.item.QuantityOnHand,
				NewQuantity: p.newQty,
			})
		}
		applied, err := s.items.AtomicBatchUpdate(ctx, updates)
		if err != nil && len(applied) > 0 {
			// The store applied a subset without atomicity. Re-apply the
			// pre-write quantities to those rows before reporting failure.
			s.compensate(ctx, planned, applied)
		}
		return err
	})
	switch {
	case writeErr == nil:
		// fall through to audit
	case errors.Is(writeErr, repository.ErrStaleStock):
		return nil, &StoreWriteError{Err: writeErr, Retryable: true}
	default:
		var insufficient *InsufficientStockError
		var precondition *PreconditionError
		if errors.As(writeErr, &insufficient) || errors.As(writeErr, &precondition) {
			return nil, writeErr
		}
		return nil, &StoreWriteError{Err: writeErr, Retryable: true}
	}

	for _, p := range planned {
		result.DeductedLines = append(result.DeductedLines, dto.DeductedLine{
			InventoryItemID:  p.item.ID.String(),
			ItemName:         p.item.Name,
			QuantityDeducted: p.item.QuantityOnHand.Sub(p.newQty),
			PreviousQuantity: p.item.QuantityOnHand,
			NewQuantity:      p.newQty,
			Clamped:          p.clamped,
		})
	}
	result.Success = true

	s.appendAuditTrail(ctx, req, actorID, planned, result)
	return result, nil
}

// planDeduction re-reads current stock and computes the new quantities.
// Called once per write attempt so a contended retry always plans against
// fresh data, including a fresh availability check.
func (s *deductionService) planDeduction(ctx context.Context, req DeductionRequest, demand IngredientDemand, result *dto.DeductionResult) ([]plannedLine, error) {
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	stocked, err := s.items.GetManyForStore(ctx, req.StoreID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.InventoryItem, len(stocked))
	for i := range stocked {
		byID[stocked[i].ID] = &stocked[i]
	}

	result.Issues = result.Issues[:0]
	planned := make([]plannedLine, 0, len(ids))
	var shortfalls []dto.Shortfall
	for _, id := range ids {
		required := demand[id]
		item, ok := byID[id]
		if !ok {
			if !req.AllowOverdraw {
				shortfalls = append(shortfalls, dto.Shortfall{InventoryItemID: id.String(), Required: required})
				continue
			}
			result.Issues = append(result.Issues, fmt.Sprintf("item %s not stocked in store %s; skipped", id, req.StoreID))
			continue
		}
		if item.QuantityOnHand.LessThan(required) {
			if !req.AllowOverdraw {
				shortfalls = append(shortfalls, dto.Shortfall{
					InventoryItemID: id.String(),
					ItemName:        item.Name,
					Required:        required,
					Available:       item.QuantityOnHand,
				})
				continue
			}
		}
		newQty := item.QuantityOnHand.Sub(required)
		clamped := false
		if newQty.IsNegative() {
			// Overdraw is business policy; a negative counter never is.
			newQty = decimal.Zero
			clamped = true
			result.Issues = append(result.Issues, fmt.Sprintf(
				"deduction clamped at zero for item %s (%s): required %s, available %s",
				item.ID, item.Name, required, item.QuantityOnHand))
		}
		planned = append(planned, plannedLine{item: *item, required: required, newQty: newQty, clamped: clamped})
	}
	if len(shortfalls) > 0 {
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}
	return planned, nil
}

// compensate restores pre-write quantities on rows a non-transactional
// store applied before failing. A successful rollback is a warning, not a
// caller-visible failure mode.
func (s *deductionService) compensate(ctx context.Context, planned []plannedLine, applied []uuid.UUID) {
	appliedSet := make(map[uuid.UUID]bool, len(applied))
	for _, id := range applied {
		appliedSet[id] = true
	}
	rollback := make([]repository.StockUpdate, 0, len(applied))
	for _, p := range planned {
		if appliedSet[p.item.ID] {
			rollback = append(rollback, repository.StockUpdate{
				ItemID:      p.item.ID,
				Expected:    p.newQty,
				NewQuantity: p.item.QuantityOnHand,
			})
		}
	}
	if _, err := s.items.AtomicBatchUpdate(ctx, rollback); err != nil {
		log.Error().Err(err).Int("rows", len(rollback)).Msg("partial write rollback failed")
		return
	}
	log.Warn().Int("rows", len(rollback)).Msg("partial write recovered — pre-write quantities restored")
}

// appendAuditTrail writes one movement per deducted item plus the sync
// audit row. Inventory correctness takes priority over audit completeness:
// a failed append never fails the sale — it is logged, recorded as a failed
// sync outcome, and queued for the retry worker so it eventually completes.
func (s *deductionService) appendAuditTrail(ctx context.Context, req DeductionRequest, actorID uuid.UUID, planned []plannedLine, result *dto.DeductionResult) {
	movements := make([]model.InventoryMovement, 0, len(planned))
	for _, p := range planned {
		change := p.newQty.Sub(p.item.QuantityOnHand)
		movements = append(movements, model.NewMovement(
			p.item.ID, model.MovementSale, change, p.item.QuantityOnHand,
			req.TransactionID, actorID, fmt.Sprintf("sale %s", req.TransactionID)))
	}

	audit := &model.SyncAudit{
		TransactionID: req.TransactionID,
		StoreID:       req.StoreID,
		Status:        model.SyncStatusSuccess,
		ItemCount:     len(movements),
	}

	if err := s.movements.AppendBatch(ctx, movements); err != nil {
		log.Warn().Err(err).
			Str("transaction_id", req.TransactionID.String()).
			Msg("movement append failed — sale committed, queueing audit retry")
		audit.Status = model.SyncStatusFailed
		audit.ErrorDetail = err.Error()
		result.Issues = append(result.Issues, "audit trail write deferred")
		if s.dispatcher != nil {
			if qErr := s.dispatcher.EnqueueAuditRetry(ctx, req.TransactionID, req.StoreID, movements); qErr != nil {
				log.Error().Err(qErr).Msg("audit retry enqueue failed")
			}
		}
	}

	if err := s.audits.Append(ctx, audit); err != nil {
		log.Warn().Err(err).
			Str("transaction_id", req.TransactionID.String()).
			Msg("sync audit append failed")
	}
}
