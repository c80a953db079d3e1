package dto

import "time"

// Health states computed by the sync health monitor.
const (
	HealthStateHealthy  = "healthy"
	HealthStateDegraded = "degraded"
	HealthStateBlocked  = "blocked"
)

// SyncHealthStatus is recomputed on an interval and held in process memory;
// sales always consult the last computed status and never wait for a fresh
// sample.
type SyncHealthStatus struct {
	State                string     `json:"state"`
	IsHealthy            bool       `json:"is_healthy"`
	CanProcessSales      bool       `json:"can_process_sales"`
	FailureRate          float64    `json:"failure_rate"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	LastSuccessfulSyncAt *time.Time `json:"last_successful_sync_at,omitempty"`
	Issues               []string   `json:"issues,omitempty"`
	CheckedAt            time.Time  `json:"checked_at"`
	SampleSize           int        `json:"sample_size"`
	OverrideActive       bool       `json:"override_active,omitempty"`
}
