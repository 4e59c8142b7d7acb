package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-queue-api/config"
	"github.com/jwalitptl/hospital-queue-api/internal/handler"
	checkinHandler "github.com/jwalitptl/hospital-queue-api/internal/handler/checkin"
	queueHandler "github.com/jwalitptl/hospital-queue-api/internal/handler/queue"
	triageHandler "github.com/jwalitptl/hospital-queue-api/internal/handler/triage"
	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-queue-api/internal/router"
	checkinService "github.com/jwalitptl/hospital-queue-api/internal/service/checkin"
	identityService "github.com/jwalitptl/hospital-queue-api/internal/service/identity"
	queueService "github.com/jwalitptl/hospital-queue-api/internal/service/queue"
	triageService "github.com/jwalitptl/hospital-queue-api/internal/service/triage"
	"github.com/jwalitptl/hospital-queue-api/pkg/logger"
	"github.com/jwalitptl/hospital-queue-api/pkg/messaging"
	redisBroker "github.com/jwalitptl/hospital-queue-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-queue-api/pkg/metrics"
)

func main() {
	logger.Setup(logger.Config{Service: "queue-api", Level: os.Getenv("LOG_LEVEL")})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	checkInRepo := postgres.NewCheckInRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	eventRepo := postgres.NewQueueEventRepository(db)
	triageRepo := postgres.NewTriageRepository(db)
	identityRepo := postgres.NewIdentityRepository(db)

	// The lane-change broker is optional: without Redis the queue still
	// works, displays just fall back to polling.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisBroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("lane-change broker unavailable, continuing without it")
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	m := metrics.NewMetrics("hospital_queue", "api")

	identitySvc := identityService.NewService(identityRepo)
	checkinSvc := checkinService.NewService(checkInRepo, identitySvc)
	triageSvc := triageService.NewService(triageRepo, identitySvc, m)
	queueSvc := queueService.NewService(
		queueRepo,
		eventRepo,
		checkInRepo,
		triageSvc,
		broker,
		m,
		priorityBands(cfg.Queue),
	)

	h := handler.NewHandler(db)

	r := router.NewRouter(
		checkinHandler.NewHandler(checkinSvc, queueSvc),
		triageHandler.NewHandler(triageSvc),
		queueHandler.NewHandler(queueSvc),
		h,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:   cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MetricsPrefix:    "queue_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

// priorityBands converts the config band map (category name to priority)
// into the queue service policy, falling back to defaults when unset.
func priorityBands(cfg config.QueueConfig) queueService.PriorityBands {
	bands := queueService.DefaultPriorityBands()
	bands.Enabled = cfg.PriorityBandsEnabled

	if len(cfg.PriorityBands) > 0 {
		bands.Bands = make(map[model.TriageCategory]int, len(cfg.PriorityBands))
		for name, priority := range cfg.PriorityBands {
			bands.Bands[model.TriageCategory(name)] = priority
		}
	}

	return bands
}
