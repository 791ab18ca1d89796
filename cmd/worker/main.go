package main

// Standalone pipeline worker: runs the periodic sweep without serving HTTP.
// Use when transcription latency should not share capacity with the API
// process.

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"callqa-backend/internal/bootstrap"
	"callqa-backend/internal/shared/config"
	"callqa-backend/internal/sweep"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started interval=%s batch=%d pool=%d", cfg.SweepInterval, cfg.ClaimBatchSize, cfg.WorkerPoolSize)

	sweeper := sweep.New(app.CallsService, cfg.SweepInterval, cfg.ClaimBatchSize)
	sweeper.Run(ctx)

	log.Printf("shutdown requested, draining in-flight work")
	app.Shutdown()
}
