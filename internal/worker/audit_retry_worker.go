package worker

import (
	"context"
	"encoding/json"

	"github.com/abs0914/croffle-store-sync-sub022/internal/infra"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"

	"github.com/rs/zerolog/log"
)

// AuditRetryWorker re-appends movement batches whose inline write failed.
// Audit writes are best-effort on the sale's critical path but must
// eventually complete; this worker is the "eventually."
type AuditRetryWorker struct {
	movements repository.MovementRepository
	audits    repository.SyncAuditRepository
	retry     infra.RetryPolicy
}

func NewAuditRetryWorker(movements repository.MovementRepository, audits repository.SyncAuditRepository, retry infra.RetryPolicy) *AuditRetryWorker {
	if retry.MaxAttempts <= 0 {
		retry = infra.DefaultRetryPolicy()
	}
	return &AuditRetryWorker{movements: movements, audits: audits, retry: retry}
}

// Process handles one audit retry job. On success the sync trail for the
// transaction is complete again, so a fresh success row is recorded and
// the health monitor's signal recovers on its next sample.
func (w *AuditRetryWorker) Process(ctx context.Context, payload json.RawMessage) {
	var job AuditRetryPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		log.Error().Err(err).Msg("audit_retry: bad payload dropped")
		return
	}

	err := w.retry.Do(ctx, func() error {
		return w.movements.AppendBatch(ctx, job.Movements)
	})

	audit := &model.SyncAudit{
		TransactionID: job.TransactionID,
		StoreID:       job.StoreID,
		Status:        model.SyncStatusSuccess,
		ItemCount:     len(job.Movements),
	}
	if err != nil {
		log.Error().Err(err).
			Str("transaction_id", job.TransactionID.String()).
			Int("movements", len(job.Movements)).
			Msg("audit_retry: movement append still failing")
		audit.Status = model.SyncStatusFailed
		audit.ErrorDetail = err.Error()
	} else {
		log.Info().
			Str("transaction_id", job.TransactionID.String()).
			Int("movements", len(job.Movements)).
			Msg("audit_retry: movement trail completed")
	}

	if auditErr := w.audits.Append(ctx, audit); auditErr != nil {
		log.Warn().Err(auditErr).Msg("audit_retry: sync audit append failed")
	}
}
