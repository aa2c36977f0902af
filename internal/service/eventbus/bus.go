package eventbus

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

const defaultEventTTL = 72 * time.Hour

type Config struct {
	// EventTTL sets delete_at on logged events.
	EventTTL time.Duration
}

// Bus maps event types to ordered listeners and dispatches published events
// through a Backend. One Bus is built per process and injected where needed.
type Bus struct {
	mu        sync.RWMutex
	listeners map[event.EventType][]event.Listener

	events  repository.EventRepository
	backend event.Backend
	logger  *logger.Logger
	metrics *metrics.Metrics
	config  Config
	now     func() time.Time
}

func NewBus(events repository.EventRepository, backend event.Backend, log *logger.Logger, m *metrics.Metrics, config Config) *Bus {
	if config.EventTTL <= 0 {
		config.EventTTL = defaultEventTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Bus{
		listeners: make(map[event.EventType][]event.Listener),
		events:    events,
		backend:   backend,
		logger:    log,
		metrics:   m,
		config:    config,
		now:       time.Now,
	}
}

// RegisterListener appends l to the listeners of eventType. Registering a
// listener name that is already present for the type is a no-op.
func (b *Bus) RegisterListener(eventType event.EventType, l event.Listener) error {
	if err := eventType.Validate(); err != nil {
		return err
	}
	if l.Name() == "" {
		return event.ErrUnnamedListener
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.listeners[eventType] {
		if existing.Name() == l.Name() {
			return nil
		}
	}
	b.listeners[eventType] = append(b.listeners[eventType], l)
	return nil
}

// Listeners returns the listener names registered for eventType in order.
func (b *Bus) Listeners(eventType event.EventType) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.listeners[eventType]))
	for _, l := range b.listeners[eventType] {
		names = append(names, l.Name())
	}
	return names
}

// Publish logs the event and hands it to every listener of its type in
// registration order. Listener failures are recorded on the event and in the
// result; they never abort the call. Only an unknown type or a failure to
// log the event is returned as an error.
func (b *Bus) Publish(ctx context.Context, eventType event.EventType, payload event.Payload) (*DispatchResult, error) {
	if err := eventType.Validate(); err != nil {
		return nil, err
	}
	start := b.now()

	payload = payload.Clone()
	evt := &model.Event{
		ID:        uuid.New(),
		EventType: eventType.String(),
		Payload:   model.JSONMap(payload),
		CreatedAt: start,
		DeleteAt:  start.Add(b.config.EventTTL),
	}
	if parent, ok := event.EventIDFromContext(ctx); ok {
		evt.ParentEventID = &parent
	}
	if err := b.events.Create(ctx, evt); err != nil {
		return nil, fmt.Errorf("failed to log event: %w", err)
	}
	b.metrics.EventsPublished.WithLabelValues(eventType.String()).Inc()

	log := b.logger.WithFields(map[string]interface{}{
		"event_id":   evt.ID.String(),
		"event_type": eventType.String(),
	})

	result := &DispatchResult{EventID: evt.ID, Outcomes: []Outcome{}}

	b.mu.RLock()
	listeners := append([]event.Listener(nil), b.listeners[eventType]...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		log.Warn("No listeners registered for event type")
		return result, nil
	}

	var failures []string
	for _, l := range listeners {
		task := event.NewTask(l, eventType, evt.ID, payload)
		task.EnqueuedAt = b.now()

		token, err := b.execute(ctx, l, task)
		if err != nil {
			b.backend.ReportError(ctx, err, task)
			failures = append(failures, fmt.Sprintf("%s: %v", l.Name(), err))
			b.metrics.ListenerOutcomes.WithLabelValues(l.Name(), "failed").Inc()
		} else {
			b.metrics.ListenerOutcomes.WithLabelValues(l.Name(), "dispatched").Inc()
		}
		result.Outcomes = append(result.Outcomes, Outcome{Listener: l.Name(), Token: token, Err: err})
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		if err := b.events.SetError(ctx, evt.ID, &msg); err != nil {
			log.Error(err, "Failed to record listener errors on event")
		}
	}

	b.metrics.DispatchLatency.WithLabelValues(eventType.String()).Observe(b.now().Sub(start).Seconds())
	log.Debug("Event dispatched", "listeners", len(listeners), "failed", len(failures))
	return result, nil
}

// execute isolates one listener: a panic becomes an error for that listener
// only.
func (b *Bus) execute(ctx context.Context, l event.Listener, task event.Task) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ZL.Error().
				Str("listener", l.Name()).
				Str("stack", string(debug.Stack())).
				Msgf("Listener panicked: %v", r)
			token, err = "", fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return b.backend.Execute(ctx, l, task)
}
