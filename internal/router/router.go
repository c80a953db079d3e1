package router

import (
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/config"
	"github.com/abs0914/croffle-store-sync-sub022/internal/handler"
	"github.com/abs0914/croffle-store-sync-sub022/internal/infra"
	"github.com/abs0914/croffle-store-sync-sub022/internal/middleware"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"
	"github.com/abs0914/croffle-store-sync-sub022/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, monitor *service.SyncHealthMonitor, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	itemRepo := repository.NewInventoryItemRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	auditRepo := repository.NewSyncAuditRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	retry := infra.RetryPolicy{
		MaxAttempts: cfg.StoreRetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.StoreRetryBaseMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.StoreRetryMaxMs) * time.Millisecond,
	}
	resolver := service.NewRecipeResolver(recipeRepo)
	availability := service.NewAvailabilityService(itemRepo, resolver)
	deduction := service.NewDeductionService(resolver, availability, itemRepo, movementRepo, auditRepo, dispatcher, retry)
	reversal := service.NewReversalService(itemRepo, movementRepo)
	orchestrator := service.NewSaleOrchestrator(productRepo, recipeRepo, deduction, monitor, service.OrchestratorConfig{
		ValidationBatchSize: cfg.ValidationBatchSize,
		InventoryBatchSize:  cfg.InventoryBatchSize,
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	salesHandler := handler.NewSalesHandler(orchestrator, reversal)
	availabilityHandler := handler.NewAvailabilityHandler(availability)
	syncHealthHandler := handler.NewSyncHealthHandler(monitor)
	movementsHandler := handler.NewMovementsHandler(movementRepo)

	r.GET("/healthz", handler.Health(db, rdb, monitor))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/availability/check", availabilityHandler.CheckAvailability)
		v1.POST("/sales/execute", salesHandler.ExecuteSale)
		v1.POST("/sales/:transaction_id/reverse", salesHandler.ReverseSale)
		v1.GET("/movements", movementsHandler.List)
		v1.GET("/sync/health", syncHealthHandler.GetStatus)

		admin := v1.Group("")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/sync/health/override", syncHealthHandler.ForceOverride)
			admin.DELETE("/sync/health/override", syncHealthHandler.ClearOverride)
		}
	}

	return r
}
