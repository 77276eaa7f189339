package main

import (
	"context"
	"log"
	"time"

	"admissions-backend/internal/bootstrap"
	"admissions-backend/internal/shared/config"
	"admissions-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	// Attempts whose deadline passed while no process was running are
	// finalized before serving traffic.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := app.ExamsService.SweepExpired(ctx); err != nil {
		log.Printf("sweep expired attempts: %v", err)
	}
	cancel()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
