package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/config"
	"github.com/abs0914/croffle-store-sync-sub022/internal/infra"
	"github.com/abs0914/croffle-store-sync-sub022/internal/repository"
	"github.com/abs0914/croffle-store-sync-sub022/internal/router"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"
	"github.com/abs0914/croffle-store-sync-sub022/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sync health monitor: process-scoped gate over the whole sale path.
	auditRepo := repository.NewSyncAuditRepository(db)
	monitor := service.NewSyncHealthMonitor(auditRepo, nil, service.HealthMonitorConfig{
		Interval:            time.Duration(cfg.HealthCheckIntervalSec) * time.Second,
		SampleWindow:        time.Duration(cfg.HealthSampleWindowMin) * time.Minute,
		SampleLimit:         cfg.HealthSampleLimit,
		CriticalFailureRate: cfg.HealthCriticalFailureRate,
		DegradedFailureRate: cfg.HealthDegradedFailureRate,
		ConsecutiveFailures: cfg.HealthConsecutiveFailures,
		StalenessWindow:     time.Duration(cfg.HealthStalenessWindowMin) * time.Minute,
	})
	monitor.Start(ctx)
	defer monitor.Stop()

	// Audit retry worker pool: failed movement appends must eventually land.
	dispatcher := worker.NewDispatcher(rdb)
	movementRepo := repository.NewMovementRepository(db)
	handlers := &worker.Handlers{
		AuditRetry: worker.NewAuditRetryWorker(movementRepo, auditRepo, infra.DefaultRetryPolicy()),
	}
	worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	r := router.New(cfg, db, rdb, monitor, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("inventory sync engine listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
