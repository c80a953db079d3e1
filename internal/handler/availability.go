package handler

import (
	"net/http"

	"github.com/abs0914/croffle-store-sync-sub022/internal/apierror"
	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AvailabilityHandler struct{ svc service.AvailabilityService }

func NewAvailabilityHandler(svc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

// CheckAvailability reports whether the store can fulfill a cart, with the
// exact shortfall list when it cannot. Read-only: no stock is touched.
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid store id"))
		return
	}

	report, err := h.svc.CheckCart(c.Request.Context(), storeID, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
