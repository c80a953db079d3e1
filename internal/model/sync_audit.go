package model

import (
	"time"

	"github.com/google/uuid"
)

// Sync audit statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncAudit records the outcome of one sale's inventory sync: did the
// movement trail for that transaction get written or not. The health
// monitor samples this table on an interval instead of issuing a per-sale
// query.
type SyncAudit struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	StoreID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Status        string    `gorm:"not null"`
	ItemCount     int       `gorm:"not null;default:0"`
	ErrorDetail   string
	CreatedAt     time.Time `gorm:"index"`
}

func (SyncAudit) TableName() string { return "inventory_sync_audit" }

// Succeeded reports whether this audit row marks a completed sync.
func (a SyncAudit) Succeeded() bool { return a.Status == SyncStatusSuccess }
