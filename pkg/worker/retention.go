package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
)

type Sweeper interface {
	Sweep(ctx context.Context) (*model.SweepResult, error)
}

// RetentionWorker runs the retention sweep on a fixed interval.
type RetentionWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *logger.Logger
}

func NewRetentionWorker(sweeper Sweeper, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting retention worker", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Log error but continue
			_, _ = w.RunOnce(ctx)
		}
	}
}

func (w *RetentionWorker) RunOnce(ctx context.Context) (*model.SweepResult, error) {
	res, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error(err, "Retention sweep failed")
		return nil, err
	}
	w.logger.Info("Retention sweep finished",
		"in_app_notifications", res.InAppNotifications,
		"email_notifications", res.EmailNotifications,
		"events", res.Events,
		"cutoff", res.Cutoff)
	return res, nil
}
