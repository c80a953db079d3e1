package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueAuditRetry = "jobs:audit_retry"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AuditRetryPayload carries a movement batch whose inline append failed.
// The sale itself already committed; these records must eventually land.
type AuditRetryPayload struct {
	TransactionID uuid.UUID                 `json:"transaction_id"`
	StoreID       uuid.UUID                 `json:"store_id"`
	Movements     []model.InventoryMovement `json:"movements"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAuditRetry pushes a failed movement batch onto the retry queue.
func (d *Dispatcher) EnqueueAuditRetry(ctx context.Context, transactionID, storeID uuid.UUID, movements []model.InventoryMovement) error {
	return d.enqueue(ctx, QueueAuditRetry, "audit_retry", AuditRetryPayload{
		TransactionID: transactionID,
		StoreID:       storeID,
		Movements:     movements,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers holds the concrete processors the pool dispatches to.
type Handlers struct {
	AuditRetry *AuditRetryWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueAuditRetry).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case "audit_retry":
		if handlers.AuditRetry != nil {
			handlers.AuditRetry.Process(ctx, job.Payload)
		}
	default:
		log.Warn().Str("type", job.Type).Msg("unknown job type dropped")
	}
}
