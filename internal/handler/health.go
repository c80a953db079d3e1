package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/service"
	"github.com/abs0914/croffle-store-sync-sub022/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports liveness for the deduction engine: the inventory store,
// the audit retry queue, and the sync health gate. A reachable process
// that cannot take sales still answers 503 so load balancers drain it.
func Health(db *gorm.DB, rdb *redis.Client, monitor *service.SyncHealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		auditQueueDepth := int64(-1)
		if depth, err := rdb.LLen(ctx, worker.QueueAuditRetry).Result(); err != nil {
			redisStatus = "error"
		} else {
			auditQueueDepth = depth
		}

		sync := monitor.Status()

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" || !sync.CanProcessSales {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":                status == http.StatusOK,
			"db":                dbStatus,
			"redis":             redisStatus,
			"sync_state":        sync.State,
			"can_process_sales": sync.CanProcessSales,
			"audit_queue_depth": auditQueueDepth,
		})
	}
}
