package infra

import (
	"fmt"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates the
// engine's tables. The inventory counters live in Postgres; its row-level and
// transactional guarantees are the sole concurrency-correctness mechanism —
// the engine never holds in-process locks across calls.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Product{},
		&model.InventoryItem{},
		&model.Recipe{},
		&model.RecipeIngredient{},
		&model.InventoryMovement{},
		&model.SyncAudit{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// quantity_on_hand can never go negative; the engine clamps at
		// zero before writing and the DB rejects anything that slips past.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_items_qty_nonneg') THEN
		    ALTER TABLE inventory_items
		      ADD CONSTRAINT chk_inventory_items_qty_nonneg CHECK (quantity_on_hand >= 0);
		  END IF;
		END $$`,
		// Movement lookup by transaction: reversal reads all sale movements
		// for one reference id.
		`CREATE INDEX IF NOT EXISTS idx_movements_reference_type
		   ON inventory_movements (reference_id, movement_type)`,
		// Health sampling reads the newest audit rows in a trailing window.
		`CREATE INDEX IF NOT EXISTS idx_sync_audit_created_at
		   ON inventory_sync_audit (created_at DESC)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
