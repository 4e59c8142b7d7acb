package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-queue-api/config"
	"github.com/jwalitptl/hospital-queue-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-queue-api/internal/worker"
	"github.com/jwalitptl/hospital-queue-api/pkg/logger"
)

func setupHealthCheck() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	logger.Setup(logger.Config{Service: "queue-worker", Level: os.Getenv("LOG_LEVEL")})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	checkInRepo := postgres.NewCheckInRepository(db)
	queueRepo := postgres.NewQueueRepository(db)

	retention := worker.NewRetentionWorker(
		checkInRepo,
		queueRepo,
		cfg.Retention.CheckInDays,
		cfg.Retention.QueueEntryDays,
		cfg.Retention.CleanupInterval,
	)

	setupHealthCheck()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	retention.Start(ctx)
}
