package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

// Sweeper removes expired notifications and events. Rows whose delete_at is
// at or after the cutoff captured at the start of a sweep are never touched.
type Sweeper struct {
	notifications repository.NotificationRepository
	events        repository.EventRepository
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewSweeper(notifications repository.NotificationRepository, events repository.EventRepository, m *metrics.Metrics) *Sweeper {
	if m == nil {
		m = metrics.Nop()
	}
	return &Sweeper{
		notifications: notifications,
		events:        events,
		metrics:       m,
		now:           time.Now,
	}
}

// Sweep deletes in-app notifications, then email notifications, then events.
// Counts deleted before a failure are still returned.
func (s *Sweeper) Sweep(ctx context.Context) (*model.SweepResult, error) {
	start := s.now()
	res := &model.SweepResult{Cutoff: start}
	defer func() {
		s.metrics.SweepDuration.Observe(s.now().Sub(start).Seconds())
	}()

	var err error
	if res.InAppNotifications, err = s.notifications.DeleteExpiredInApp(ctx, res.Cutoff); err != nil {
		return res, fmt.Errorf("failed to sweep in-app notifications: %w", err)
	}
	s.metrics.SweepDeleted.WithLabelValues("in_app_notifications").Add(float64(res.InAppNotifications))

	if res.EmailNotifications, err = s.notifications.DeleteExpiredEmail(ctx, res.Cutoff); err != nil {
		return res, fmt.Errorf("failed to sweep email notifications: %w", err)
	}
	s.metrics.SweepDeleted.WithLabelValues("email_notifications").Add(float64(res.EmailNotifications))

	if res.Events, err = s.events.DeleteExpired(ctx, res.Cutoff); err != nil {
		return res, fmt.Errorf("failed to sweep events: %w", err)
	}
	s.metrics.SweepDeleted.WithLabelValues("events").Add(float64(res.Events))

	return res, nil
}
