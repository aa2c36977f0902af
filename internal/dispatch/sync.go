package dispatch

import (
	"context"

	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

// SyncBackend runs listeners in the publishing goroutine.
type SyncBackend struct {
	reporter
	resolver event.Resolver
}

func NewSyncBackend(resolver event.Resolver, log *logger.Logger, m *metrics.Metrics, opts ...Option) *SyncBackend {
	return &SyncBackend{
		reporter: newReporter(log, m, opts),
		resolver: resolver,
	}
}

func (b *SyncBackend) Execute(ctx context.Context, l event.Listener, task event.Task) (string, error) {
	fn, err := l.Resolve(b.resolver)
	if err != nil {
		return "", err
	}
	if err := fn(event.WithEventID(ctx, task.EventID), task.EventType, task.Payload); err != nil {
		return "", err
	}
	return event.SyncToken, nil
}

var _ event.Backend = (*SyncBackend)(nil)
