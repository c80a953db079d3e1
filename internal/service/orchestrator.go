package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives an update after every processed batch. Nil is fine.
type ProgressFunc func(dto.ProgressUpdate)

// OrchestratorConfig bounds how many concurrent store operations one large
// cart can generate: items run concurrently within a batch, batches run
// sequentially.
type OrchestratorConfig struct {
	ValidationBatchSize int
	InventoryBatchSize  int
}

// DefaultOrchestratorConfig returns the batch sizes used in production.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{ValidationBatchSize: 50, InventoryBatchSize: 20}
}

// SaleOrchestrator is the entry point the checkout flow calls. Control
// flow: validation phase in full, then the sync health gate, then the
// inventory phase batch by batch.
type SaleOrchestrator interface {
	ExecuteSale(ctx context.Context, req dto.ExecuteSaleRequest, actorID uuid.UUID, progress ProgressFunc) (*dto.SaleResult, error)
}

type saleOrchestrator struct {
	products  repository.ProductRepository
	recipes   repository.RecipeRepository
	deduction DeductionService
	monitor   *SyncHealthMonitor
	cfg       OrchestratorConfig
}

func NewSaleOrchestrator(
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	deduction DeductionService,
	monitor *SyncHealthMonitor,
	cfg OrchestratorConfig,
) SaleOrchestrator {
	if cfg.ValidationBatchSize <= 0 || cfg.InventoryBatchSize <= 0 {
		cfg = DefaultOrchestratorConfig()
	}
	return &saleOrchestrator{
		products:  products,
		recipes:   recipes,
		deduction: deduction,
		monitor:   monitor,
		cfg:       cfg,
	}
}

func (s *saleOrchestrator) ExecuteSale(ctx context.Context, req dto.ExecuteSaleRequest, actorID uuid.UUID, progress ProgressFunc) (*dto.SaleResult, error) {
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, &PreconditionError{Reason: "invalid transaction_id"}
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, &PreconditionError{Reason: "invalid store_id"}
	}
	if len(req.Items) == 0 {
		return nil, &PreconditionError{Reason: "empty cart"}
	}

	// Phase 1: validate everything. Any failure rejects the whole cart —
	// the inventory phase does not start for any item.
	if err := s.validateCart(ctx, storeID, req.Items, progress); err != nil {
		return nil, err
	}

	// Phase 2: the health gate consults the last computed status only;
	// it never waits for a fresh sample.
	if !s.monitor.Status().CanProcessSales {
		return nil, ErrHealthGateBlocked
	}

	// Phase 3: deduct batch by batch. Each batch is one atomic multi-row
	// write; committed batches stay committed when a later batch fails.
	result := &dto.SaleResult{TransactionID: req.TransactionID}
	batches := chunkItems(req.Items, s.cfg.InventoryBatchSize)
	completed := 0
	for i, batch := range batches {
		// Cooperative checkpoint: cancellation applies between batches,
		// never mid-write.
		if err := ctx.Err(); err != nil {
			failed := i
			result.FailedBatch = &failed
			return result, err
		}

		dr, err := s.deduction.Deduct(ctx, DeductionRequest{
			TransactionID: transactionID,
			StoreID:       storeID,
			Items:         batch,
			AllowOverdraw: req.AllowOverdraw,
		}, actorID)
		if err != nil {
			failed := i
			result.FailedBatch = &failed
			log.Error().Err(err).
				Str("transaction_id", req.TransactionID).
				Int("batch", i).
				Ints("committed_batches", result.CommittedBatches).
				Msg("inventory batch failed")
			return result, err
		}

		result.CommittedBatches = append(result.CommittedBatches, i)
		result.DeductedLines = append(result.DeductedLines, dr.DeductedLines...)
		result.Issues = append(result.Issues, dr.Issues...)

		completed += len(batch)
		report(progress, dto.StageInventory, completed, len(req.Items))
	}

	result.Success = true
	return result, nil
}

// validateCart checks every cart line against the catalog and recipe set.
// Within a batch the lookups run concurrently; batches run sequentially.
// All batches are validated even after a failure so the caller gets the
// complete aggregated error set in one round.
func (s *saleOrchestrator) validateCart(ctx context.Context, storeID uuid.UUID, items []dto.SaleLineItem, progress ProgressFunc) error {
	failures := make(map[string]string)
	var mu sync.Mutex
	fail := func(productID, reason string) {
		mu.Lock()
		failures[productID] = reason
		mu.Unlock()
	}

	completed := 0
	for _, batch := range chunkItems(items, s.cfg.ValidationBatchSize) {
		ids := make([]uuid.UUID, 0, len(batch))
		for _, item := range batch {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				fail(item.ProductID, "invalid product id")
				continue
			}
			if item.QuantitySold <= 0 {
				fail(item.ProductID, "quantity_sold must be positive")
				continue
			}
			ids = append(ids, pid)
		}

		var products []model.Product
		var recipes []model.Recipe
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			products, err = s.products.FindByIDs(gctx, storeID, ids)
			return err
		})
		g.Go(func() error {
			var err error
			recipes, err = s.recipes.FindActiveByProductIDs(gctx, ids)
			return err
		})
		if err := g.Wait(); err != nil {
			return &StoreWriteError{Err: fmt.Errorf("validation read: %w", err), Retryable: true}
		}

		productByID := make(map[uuid.UUID]*model.Product, len(products))
		for i := range products {
			productByID[products[i].ID] = &products[i]
		}
		hasRecipe := make(map[uuid.UUID]bool, len(recipes))
		for _, r := range recipes {
			hasRecipe[r.ProductID] = true
		}

		for _, pid := range ids {
			p, ok := productByID[pid]
			switch {
			case !ok:
				fail(pid.String(), "product not found in store")
			case !p.Active:
				fail(pid.String(), "product is inactive")
			case !hasRecipe[pid]:
				fail(pid.String(), "no active recipe")
			}
		}

		completed += len(batch)
		report(progress, dto.StageValidation, completed, len(items))
	}

	if len(failures) > 0 {
		return &ValidationErrors{Items: failures}
	}
	return nil
}

func report(progress ProgressFunc, stage string, completed, total int) {
	if progress != nil {
		progress(dto.ProgressUpdate{Stage: stage, ItemsCompleted: completed, ItemsTotal: total})
	}
}

func chunkItems(items []dto.SaleLineItem, size int) [][]dto.SaleLineItem {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]dto.SaleLineItem
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
