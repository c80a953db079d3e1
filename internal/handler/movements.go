package handler

import (
	"net/http"

	"github.com/abs0914/croffle-store-sync-sub022/internal/apierror"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MovementsHandler struct{ repo repository.MovementRepository }

func NewMovementsHandler(repo repository.MovementRepository) *MovementsHandler {
	return &MovementsHandler{repo: repo}
}

type movementQuery struct {
	ItemID       string `form:"item_id"`
	MovementType string `form:"type"`
	Page         int    `form:"page,default=1"`
	Limit        int    `form:"limit,default=50"`
}

// List returns the paginated movement trail for audit review.
func (h *MovementsHandler) List(c *gin.Context) {
	var q movementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	filter := repository.MovementFilter{
		MovementType: q.MovementType,
		Page:         q.Page,
		Limit:        q.Limit,
	}
	if q.ItemID != "" {
		id, err := uuid.Parse(q.ItemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
			return
		}
		filter.InventoryItemID = &id
	}

	movements, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list movements"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  movements,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}
