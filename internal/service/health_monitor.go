package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"github.com/rs/zerolog/log"
)

// ── Sync health monitor ──────────────────────────────────────────────────────
// A background circuit breaker for the whole deduction path. It samples the
// sync audit trail on a fixed interval and decides, without a per-sale
// query, whether new sales may proceed. Sales always consult the last
// computed status; they never wait for a fresh sample.

// Clock is injectable so transition logic is unit-testable without
// wall-clock intervals.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// HealthSampler supplies the trailing window of recent sync outcomes,
// newest first. Satisfied by repository.SyncAuditRepository.
type HealthSampler interface {
	RecentWindow(ctx context.Context, since time.Time, limit int) ([]model.SyncAudit, error)
}

// HealthMonitorConfig holds the transition thresholds.
type HealthMonitorConfig struct {
	Interval            time.Duration // tick cadence (default 30s)
	SampleWindow        time.Duration // trailing window sampled per tick
	SampleLimit         int
	CriticalFailureRate float64 // window failure rate above this blocks sales
	DegradedFailureRate float64 // above this, degraded but sales allowed
	ConsecutiveFailures int     // this many newest failures in a row blocks sales
	StalenessWindow     time.Duration // no success within this blocks sales
}

// DefaultHealthMonitorConfig returns the recommended thresholds.
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{
		Interval:            30 * time.Second,
		SampleWindow:        10 * time.Minute,
		SampleLimit:         50,
		CriticalFailureRate: 0.5,
		DegradedFailureRate: 0.2,
		ConsecutiveFailures: 5,
		StalenessWindow:     15 * time.Minute,
	}
}

// SyncHealthMonitor is a process-scoped component with an explicit
// start/stop lifecycle.
type SyncHealthMonitor struct {
	sampler HealthSampler
	clock   Clock
	cfg     HealthMonitorConfig

	mu            sync.RWMutex
	status        dto.SyncHealthStatus
	override      bool
	lastSuccessAt *time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncHealthMonitor builds a monitor that starts out HEALTHY: absence of
// signal means "nothing to report," so a fresh store never blocks its first
// sale. Pass a nil clock for wall-clock time.
func NewSyncHealthMonitor(sampler HealthSampler, clock Clock, cfg HealthMonitorConfig) *SyncHealthMonitor {
	if clock == nil {
		clock = systemClock{}
	}
	if cfg.Interval <= 0 {
		cfg = DefaultHealthMonitorConfig()
	}
	m := &SyncHealthMonitor{sampler: sampler, clock: clock, cfg: cfg}
	m.status = dto.SyncHealthStatus{
		State:           dto.HealthStateHealthy,
		IsHealthy:       true,
		CanProcessSales: true,
		CheckedAt:       clock.Now(),
	}
	return m
}

// Start evaluates once immediately, then on every tick until Stop or ctx
// cancellation.
func (m *SyncHealthMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	m.evaluate(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", m.cfg.Interval).Msg("sync health monitor started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sync health monitor stopped")
				return
			case <-ticker.C:
				m.evaluate(ctx)
			}
		}
	}()
}

// Stop halts the background loop and waits for it to exit.
func (m *SyncHealthMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Status returns the last computed status without blocking on a sample.
func (m *SyncHealthMonitor) Status() dto.SyncHealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// ForceOverride pins canProcessSales to true regardless of computed state.
// The override is recorded as an issue string so it is visible in every
// status object, never silent.
func (m *SyncHealthMonitor) ForceOverride() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = true
	m.status.CanProcessSales = true
	m.status.OverrideActive = true
	m.status.Issues = append(m.status.Issues, overrideIssue)
	log.Warn().Msg("sync health override forced — sales allowed regardless of computed state")
}

// ClearOverride returns the gate to computed behavior on the next tick.
func (m *SyncHealthMonitor) ClearOverride() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = false
	m.status.OverrideActive = false
}

const overrideIssue = "manual override active: sales forced on"

// evaluate recomputes the status from one trailing-window sample. A sampler
// error keeps the previous status — the monitor fails open on its own
// faults, never on business data.
func (m *SyncHealthMonitor) evaluate(ctx context.Context) {
	now := m.clock.Now()
	samples, err := m.sampler.RecentWindow(ctx, now.Add(-m.cfg.SampleWindow), m.cfg.SampleLimit)
	if err != nil {
		log.Warn().Err(err).Msg("health sample failed — keeping previous status")
		return
	}

	status := dto.SyncHealthStatus{
		State:           dto.HealthStateHealthy,
		CheckedAt:       now,
		SampleSize:      len(samples),
		CanProcessSales: true,
	}

	if len(samples) > 0 {
		failed := 0
		consecutive := 0
		counting := true // samples arrive newest first
		for _, s := range samples {
			if s.Succeeded() {
				counting = false
				if m.lastSuccessAt == nil || s.CreatedAt.After(*m.lastSuccessAt) {
					t := s.CreatedAt
					m.lastSuccessAt = &t
				}
				continue
			}
			failed++
			if counting {
				consecutive++
			}
		}

		status.FailureRate = float64(failed) / float64(len(samples))
		status.ConsecutiveFailures = consecutive

		if status.FailureRate > m.cfg.CriticalFailureRate {
			status.State = dto.HealthStateBlocked
			status.Issues = append(status.Issues, fmt.Sprintf(
				"critical failure rate: %.0f%% of last %d syncs failed", status.FailureRate*100, len(samples)))
		}
		if consecutive >= m.cfg.ConsecutiveFailures {
			status.State = dto.HealthStateBlocked
			status.Issues = append(status.Issues, fmt.Sprintf(
				"consecutive failures: last %d syncs all failed", consecutive))
		}
		if m.lastSuccessAt != nil && now.Sub(*m.lastSuccessAt) > m.cfg.StalenessWindow {
			status.State = dto.HealthStateBlocked
			status.Issues = append(status.Issues, fmt.Sprintf(
				"no recent success: last successful sync at %s", m.lastSuccessAt.Format(time.RFC3339)))
		}
		if status.State == dto.HealthStateHealthy && status.FailureRate > m.cfg.DegradedFailureRate {
			status.State = dto.HealthStateDegraded
			status.Issues = append(status.Issues, fmt.Sprintf(
				"elevated failure rate: %.0f%% of last %d syncs failed", status.FailureRate*100, len(samples)))
		}
	}

	status.IsHealthy = status.State == dto.HealthStateHealthy
	status.CanProcessSales = status.State != dto.HealthStateBlocked
	status.LastSuccessfulSyncAt = m.lastSuccessAt

	m.mu.Lock()
	if m.override {
		status.CanProcessSales = true
		status.OverrideActive = true
		status.Issues = append(status.Issues, overrideIssue)
	}
	prev := m.status.State
	m.status = status
	m.mu.Unlock()

	if prev != status.State {
		log.Warn().
			Str("from", prev).
			Str("to", status.State).
			Float64("failure_rate", status.FailureRate).
			Int("consecutive_failures", status.ConsecutiveFailures).
			Msg("sync health state changed")
	}
}
