// Package dispatch provides the execution backends used by the event bus:
// inline execution for tests and single-process setups, and a Redis task
// queue drained by cmd/worker.
package dispatch

import (
	"context"

	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

// ErrorReporter receives listener failures for external monitoring.
type ErrorReporter func(ctx context.Context, err error, task event.Task)

type Option func(*reporter)

// WithErrorReporter chains hook after the default error log.
func WithErrorReporter(hook ErrorReporter) Option {
	return func(r *reporter) {
		r.hook = hook
	}
}

type reporter struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	hook    ErrorReporter
}

func newReporter(log *logger.Logger, m *metrics.Metrics, opts []Option) reporter {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	r := reporter{logger: log, metrics: m}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ReportError logs the failure at error level with the task context.
func (r reporter) ReportError(ctx context.Context, err error, task event.Task) {
	r.logger.ZL.Error().
		Err(err).
		Str("listener", task.ListenerRef).
		Str("event_type", task.EventType.String()).
		Str("event_id", task.EventID.String()).
		Str("task_id", task.ID.String()).
		Int("attempt", task.Attempt).
		Interface("payload", task.Payload).
		Msg("Listener failed")

	r.metrics.ListenerErrors.WithLabelValues(task.ListenerRef, task.EventType.String()).Inc()
	if r.hook != nil {
		r.hook(ctx, err, task)
	}
}
