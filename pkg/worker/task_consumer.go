package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/messaging"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

type TaskConsumerConfig struct {
	Queue           string
	DeadLetterQueue string
	Concurrency     int
	RetryAttempts   int
	RetryDelay      time.Duration
	PollTimeout     time.Duration
}

// EventErrorRecorder appends a late listener failure to the logged event.
type EventErrorRecorder interface {
	AppendError(ctx context.Context, id uuid.UUID, message string) error
}

// ErrorReporter is the backend's error hook.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error, task event.Task)
}

// deadLetter is what lands on the dead-letter queue for a task that ran out
// of attempts.
type deadLetter struct {
	event.Task
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// TaskConsumer drains deferred listener tasks and runs them against the
// local listener registry.
type TaskConsumer struct {
	queue    messaging.Queue
	resolver event.Resolver
	events   EventErrorRecorder
	reporter ErrorReporter
	config   TaskConsumerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewTaskConsumer(
	queue messaging.Queue,
	resolver event.Resolver,
	events EventErrorRecorder,
	reporter ErrorReporter,
	config TaskConsumerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *TaskConsumer {
	// Config validation instead of defaults
	if config.Queue == "" {
		panic("Queue must be set")
	}
	if config.Concurrency <= 0 {
		panic("Concurrency must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay < 0 {
		panic("RetryDelay must not be negative")
	}
	if config.PollTimeout <= 0 {
		panic("PollTimeout must be greater than 0")
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}

	return &TaskConsumer{
		queue:    queue,
		resolver: resolver,
		events:   events,
		reporter: reporter,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

// Start runs Concurrency consumers and blocks until ctx is cancelled and
// every in-flight task has finished.
func (c *TaskConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting task consumer", "queue", c.config.Queue, "concurrency", c.config.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < c.config.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.consume(ctx, id)
		}(i)
	}
	wg.Wait()

	c.logger.Info("Task consumer stopped")
}

func (c *TaskConsumer) consume(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := c.queue.Dequeue(ctx, c.config.Queue, c.config.PollTimeout)
		switch {
		case errors.Is(err, messaging.ErrEmpty):
			c.updateQueueSize(ctx)
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			c.logger.Error(err, "Failed to dequeue task", "consumer", id)
			if !sleep(ctx, c.config.PollTimeout) {
				return
			}
			continue
		}

		// In-flight tasks finish even when shutdown starts.
		c.process(context.WithoutCancel(ctx), raw)
		c.updateQueueSize(ctx)
	}
}

func (c *TaskConsumer) process(ctx context.Context, raw []byte) {
	var task event.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		c.logger.Error(err, "Discarding malformed task")
		c.metrics.TasksDeadLettered.WithLabelValues("unknown").Inc()
		c.pushDeadLetter(ctx, raw)
		return
	}

	log := c.logger.WithFields(map[string]interface{}{
		"task_id":    task.ID.String(),
		"event_id":   task.EventID.String(),
		"event_type": task.EventType.String(),
		"listener":   task.ListenerRef,
	})
	if task.RegistryVersion != event.RegistryVersion {
		log.Warn("Task was produced against a different event registry version",
			"task_registry_version", task.RegistryVersion,
			"registry_version", event.RegistryVersion)
	}

	fn, err := c.resolver.Resolve(task.ListenerRef)
	if err != nil {
		c.fail(ctx, task, err)
		return
	}

	runCtx := event.WithEventID(ctx, task.EventID)
	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		task.Attempt = attempt
		if attempt > 1 {
			c.metrics.TaskRetries.WithLabelValues(task.ListenerRef).Inc()
			sleep(ctx, time.Duration(attempt-1)*c.config.RetryDelay)
		}

		if err = run(runCtx, fn, task); err == nil {
			c.metrics.TasksProcessed.WithLabelValues(task.ListenerRef, "success").Inc()
			log.Debug("Task processed", "attempt", attempt)
			return
		}
		log.ZL.Warn().Err(err).Int("attempt", attempt).Msg("Task attempt failed")
	}

	c.fail(ctx, task, err)
}

// fail reports a task that will not be retried, parks it on the dead-letter
// queue and records the failure on its event.
func (c *TaskConsumer) fail(ctx context.Context, task event.Task, err error) {
	c.metrics.TasksProcessed.WithLabelValues(task.ListenerRef, "failed").Inc()
	if c.reporter != nil {
		c.reporter.ReportError(ctx, err, task)
	}

	body, mErr := json.Marshal(deadLetter{Task: task, Error: err.Error(), FailedAt: time.Now()})
	if mErr != nil {
		c.logger.Error(mErr, "Failed to marshal dead letter", "task_id", task.ID.String())
	} else {
		c.metrics.TasksDeadLettered.WithLabelValues(task.ListenerRef).Inc()
		c.pushDeadLetter(ctx, body)
	}

	msg := fmt.Sprintf("%s: %v", task.ListenerRef, err)
	if aErr := c.events.AppendError(ctx, task.EventID, msg); aErr != nil {
		c.logger.Error(aErr, "Failed to record task failure on event", "event_id", task.EventID.String())
	}
}

func (c *TaskConsumer) pushDeadLetter(ctx context.Context, body []byte) {
	if c.config.DeadLetterQueue == "" {
		return
	}
	if err := c.queue.Enqueue(ctx, c.config.DeadLetterQueue, body); err != nil {
		c.logger.Error(err, "Failed to push dead letter", "queue", c.config.DeadLetterQueue)
	}
}

func (c *TaskConsumer) updateQueueSize(ctx context.Context) {
	if n, err := c.queue.Len(ctx, c.config.Queue); err == nil {
		c.metrics.TaskQueueSize.Set(float64(n))
	}
}

func run(ctx context.Context, fn event.Func, task event.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return fn(ctx, task.EventType, task.Payload)
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
