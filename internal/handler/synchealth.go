package handler

import (
	"net/http"

	"github.com/abs0914/croffle-store-sync-sub022/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncHealthHandler struct{ monitor *service.SyncHealthMonitor }

func NewSyncHealthHandler(monitor *service.SyncHealthMonitor) *SyncHealthHandler {
	return &SyncHealthHandler{monitor: monitor}
}

// GetStatus returns the last computed sync health status. Cached and
// non-blocking: the monitor's own interval controls freshness.
func (h *SyncHealthHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

// ForceOverride pins the sales gate open regardless of computed health.
// Admin-only escape hatch; the override shows up as an issue string in
// every subsequent status.
func (h *SyncHealthHandler) ForceOverride(c *gin.Context) {
	h.monitor.ForceOverride()
	c.JSON(http.StatusOK, h.monitor.Status())
}

// ClearOverride returns the gate to computed behavior.
func (h *SyncHealthHandler) ClearOverride(c *gin.Context) {
	h.monitor.ClearOverride()
	c.JSON(http.StatusOK, h.monitor.Status())
}
