package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	"github.com/seojinhan/matjip-backend/pkg/logger"
)

// ReconcileScheduler periodically recomputes restaurant aggregates from
// the stored reviews. Aggregates are maintained transactionally on every
// submission, so this only repairs drift introduced by manual data
// edits or partial restores.
type ReconcileScheduler struct {
	cron          *cron.Cron
	reviewService *service.ReviewService
}

func NewReconcileScheduler(reviewService *service.ReviewService) *ReconcileScheduler {
	return &ReconcileScheduler{
		cron:          cron.New(),
		reviewService: reviewService,
	}
}

// Start registers the nightly job (4:00 AM) and starts the cron loop.
func (s *ReconcileScheduler) Start() error {
	_, err := s.cron.AddFunc("0 4 * * *", func() {
		logger.Info("Starting scheduled aggregate reconciliation", nil)

		repaired, err := s.reviewService.Reconcile(context.Background())
		if err != nil {
			logger.Error("Aggregate reconciliation failed", err)
			return
		}

		logger.Info("Aggregate reconciliation finished", map[string]interface{}{
			"repaired": repaired,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for aggregate reconciliation", err)
		return err
	}

	s.cron.Start()
	logger.Info("Aggregate reconciliation scheduler started (daily at 4:00 AM)", nil)

	return nil
}

func (s *ReconcileScheduler) Stop() {
	logger.Info("Stopping aggregate reconciliation scheduler...", nil)
	s.cron.Stop()
	logger.Info("Aggregate reconciliation scheduler stopped", nil)
}
