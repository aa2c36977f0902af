package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/messaging"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

// QueueBackend serialises each listener invocation as an event.Task and
// pushes it to a queue for cmd/worker.
type QueueBackend struct {
	reporter
	queue    messaging.Queue
	name     string
	resolver event.Resolver
}

// NewQueueBackend enqueues onto queueName. When resolver is set, listeners
// the worker could not resolve are rejected before enqueueing.
func NewQueueBackend(queue messaging.Queue, queueName string, resolver event.Resolver, log *logger.Logger, m *metrics.Metrics, opts ...Option) *QueueBackend {
	return &QueueBackend{
		reporter: newReporter(log, m, opts),
		queue:    queue,
		name:     queueName,
		resolver: resolver,
	}
}

func (b *QueueBackend) Execute(ctx context.Context, l event.Listener, task event.Task) (string, error) {
	if b.resolver != nil {
		if _, err := b.resolver.Resolve(l.Name()); err != nil {
			return "", err
		}
	}

	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := b.queue.Enqueue(ctx, b.name, body); err != nil {
		return "", err
	}
	return task.ID.String(), nil
}

var _ event.Backend = (*QueueBackend)(nil)
