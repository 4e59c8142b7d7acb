package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-queue-api/internal/repository"
)

// RetentionWorker deletes terminal check-ins and done queue entries past
// their retention window. The queue event log is append-only and is never
// touched here; events for deleted entries remain for analytics.
type RetentionWorker struct {
	checkIns repository.CheckInRepository
	queue    repository.QueueRepository

	checkInRetentionDays int
	queueRetentionDays   int
	interval             time.Duration
}

func NewRetentionWorker(
	checkIns repository.CheckInRepository,
	queue repository.QueueRepository,
	checkInRetentionDays int,
	queueRetentionDays int,
	interval time.Duration,
) *RetentionWorker {
	return &RetentionWorker{
		checkIns:             checkIns,
		queue:                queue,
		checkInRetentionDays: checkInRetentionDays,
		queueRetentionDays:   queueRetentionDays,
		interval:             interval,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", w.interval).
		Int("checkin_retention_days", w.checkInRetentionDays).
		Int("queue_retention_days", w.queueRetentionDays).
		Msg("Retention worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention worker shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	now := time.Now()

	queueCutoff := now.AddDate(0, 0, -w.queueRetentionDays)
	if rows, err := w.queue.DeleteDoneBefore(ctx, queueCutoff); err != nil {
		log.Error().Err(err).Msg("Failed to clean up queue entries")
	} else if rows > 0 {
		log.Info().Int64("rows", rows).Time("cutoff", queueCutoff).Msg("Cleaned up done queue entries")
	}

	checkInCutoff := now.AddDate(0, 0, -w.checkInRetentionDays)
	if rows, err := w.checkIns.DeleteTerminalBefore(ctx, checkInCutoff); err != nil {
		log.Error().Err(err).Msg("Failed to clean up check-ins")
	} else if rows > 0 {
		log.Info().Int64("rows", rows).Time("cutoff", checkInCutoff).Msg("Cleaned up terminal check-ins")
	}
}
