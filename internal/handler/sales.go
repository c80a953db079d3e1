package handler

import (
	"net/http"

	"github.com/abs0914/croffle-store-sync-sub022/internal/apierror"
	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/middleware"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SalesHandler struct {
	orchestrator service.SaleOrchestrator
	reversal     service.ReversalService
}

func NewSalesHandler(orchestrator service.SaleOrchestrator, reversal service.ReversalService) *SalesHandler {
	return &SalesHandler{orchestrator: orchestrator, reversal: reversal}
}

// ExecuteSale runs the full checkout pipeline for one completed sale:
// validation, health gate, then batched atomic deductions.
func (h *SalesHandler) ExecuteSale(c *gin.Context) {
	var req dto.ExecuteSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID := actorFromClaims(c)

	result, err := h.orchestrator.ExecuteSale(c.Request.Context(), req, actorID, func(p dto.ProgressUpdate) {
		log.Debug().
			Str("transaction_id", req.TransactionID).
			Str("stage", p.Stage).
			Int("completed", p.ItemsCompleted).
			Int("total", p.ItemsTotal).
			Msg("sale progress")
	})
	if err != nil {
		// A partial result still tells the caller which batches committed.
		if result != nil && len(result.CommittedBatches) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail":            "sale partially applied",
				"code":              "partial_sale",
				"committed_batches": result.CommittedBatches,
				"failed_batch":      result.FailedBatch,
			})
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ReverseSale undoes a prior sale's inventory effect using the movement
// trail. Partial failures return the exact failed subset for retry.
func (h *SalesHandler) ReverseSale(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("transaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transaction id"))
		return
	}
	actorID := actorFromClaims(c)

	result, err := h.reversal.Reverse(c.Request.Context(), transactionID, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusOK
	if !result.FullyRestored {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func actorFromClaims(c *gin.Context) uuid.UUID {
	if claims, ok := middleware.GetClaims(c); ok {
		if id, err := uuid.Parse(claims.ActorID); err == nil {
			return id
		}
	}
	return uuid.Nil
}
