package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/dto"
	"github.com/abs0914/croffle-store-sync-sub022/internal/model"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type auditWindowStub struct {
	samples []model.SyncAudit
}

func (s *auditWindowStub) RecentWindow(_ context.Context, _ time.Time, _ int) ([]model.SyncAudit, error) {
	return s.samples, nil
}

// deadRedis fails every command fast instead of hanging on a dial.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func healthRecorder(t *testing.T, monitor *service.SyncHealthMonitor) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := gin.New()
	// A zero-value DB handle has no connection pool, so the ping path
	// reports an error without touching the network.
	r.GET("/healthz", Health(&gorm.DB{Config: &gorm.Config{}}, deadRedis(), monitor))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth_BackendOutageAnswers503(t *testing.T) {
	monitor := service.NewSyncHealthMonitor(&auditWindowStub{}, nil, service.DefaultHealthMonitorConfig())

	w, body := healthRecorder(t, monitor)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "error", body["redis"])
	// The engine signal still rides along: a fresh monitor allows sales.
	assert.Equal(t, dto.HealthStateHealthy, body["sync_state"])
	assert.Equal(t, true, body["can_process_sales"])
	// Queue depth is unknown when the queue is unreachable.
	assert.Equal(t, float64(-1), body["audit_queue_depth"])
}

func TestHealth_ReportsBlockedSyncGate(t *testing.T) {
	// Five consecutive failed syncs trip the gate on the first evaluation.
	now := time.Now()
	sampler := &auditWindowStub{}
	for i := 0; i < 5; i++ {
		sampler.samples = append(sampler.samples, model.SyncAudit{
			ID:            uuid.New(),
			TransactionID: uuid.New(),
			StoreID:       uuid.New(),
			Status:        model.SyncStatusFailed,
			CreatedAt:     now.Add(-time.Duration(i) * time.Minute),
		})
	}
	monitor := service.NewSyncHealthMonitor(sampler, nil, service.DefaultHealthMonitorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx)
	defer monitor.Stop()

	w, body := healthRecorder(t, monitor)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.HealthStateBlocked, body["sync_state"])
	assert.Equal(t, false, body["can_process_sales"])
}
