package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/engagement-hub/internal/dispatch"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

type testBus struct {
	*Bus
	store    *memory.Store
	registry *event.ListenerRegistry
	reported []event.Task
}

func newTestBus(t *testing.T) *testBus {
	t.Helper()
	tb := &testBus{store: memory.NewStore(), registry: event.NewListenerRegistry()}
	backend := dispatch.NewSyncBackend(tb.registry, logger.Nop(), metrics.NewForTest(),
		dispatch.WithErrorReporter(func(_ context.Context, _ error, task event.Task) {
			tb.reported = append(tb.reported, task)
		}))
	tb.Bus = NewBus(tb.store.Events(), backend, logger.Nop(), metrics.NewForTest(), Config{})
	return tb
}

func (tb *testBus) register(t *testing.T, eventType event.EventType, name string, fn event.Func) {
	t.Helper()
	l, err := tb.registry.Register(name, fn)
	require.NoError(t, err)
	require.NoError(t, tb.RegisterListener(eventType, l))
}

func TestPublishUnknownTypeIsNotLogged(t *testing.T) {
	tb := newTestBus(t)

	_, err := tb.Publish(context.Background(), event.EventType("product.deleted"), event.Payload{})
	assert.ErrorIs(t, err, event.ErrUnknownEventType)

	n, _ := tb.store.Events().DeleteExpired(context.Background(), time.Now().Add(24*365*time.Hour))
	assert.Zero(t, n)
}

func TestRegisterListenerUnknownType(t *testing.T) {
	tb := newTestBus(t)
	err := tb.RegisterListener("nope", event.Reference("x"))
	assert.ErrorIs(t, err, event.ErrUnknownEventType)

	err = tb.RegisterListener(event.ProductCreated, event.Reference(""))
	assert.ErrorIs(t, err, event.ErrUnnamedListener)
}

func TestPublishWithoutListeners(t *testing.T) {
	tb := newTestBus(t)

	res, err := tb.Publish(context.Background(), event.ProductCreated, event.Payload{"name": "x"})
	require.NoError(t, err)
	assert.Empty(t, res.Outcomes)
	assert.False(t, res.AnySucceeded())

	evt, err := tb.store.Events().Get(context.Background(), res.EventID)
	require.NoError(t, err)
	assert.Nil(t, evt.Error)
	assert.Equal(t, "x", evt.Payload["name"])
}

func TestFailureIsolation(t *testing.T) {
	tb := newTestBus(t)
	var order []string

	tb.register(t, event.ProductCreated, "a", func(context.Context, event.EventType, event.Payload) error {
		order = append(order, "a")
		return errors.New("boom")
	})
	tb.register(t, event.ProductCreated, "b", func(context.Context, event.EventType, event.Payload) error {
		order = append(order, "b")
		panic("kaput")
	})
	tb.register(t, event.ProductCreated, "c", func(context.Context, event.EventType, event.Payload) error {
		order = append(order, "c")
		return nil
	})

	res, err := tb.Publish(context.Background(), event.ProductCreated, event.Payload{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.AnySucceeded())
	assert.Len(t, res.Failed(), 2)
	assert.Equal(t, []string{event.SyncToken}, res.Tokens())
	assert.Len(t, tb.reported, 2)

	evt, err := tb.store.Events().Get(context.Background(), res.EventID)
	require.NoError(t, err)
	require.NotNil(t, evt.Error)
	assert.Contains(t, *evt.Error, "a: boom")
	assert.Contains(t, *evt.Error, "b: listener panicked: kaput")
}

func TestIdempotentRegistration(t *testing.T) {
	tb := newTestBus(t)
	calls := 0
	fn := func(context.Context, event.EventType, event.Payload) error {
		calls++
		return nil
	}

	tb.register(t, event.WorkApproved, "counter", fn)
	tb.register(t, event.WorkApproved, "counter", fn)
	assert.Equal(t, []string{"counter"}, tb.Listeners(event.WorkApproved))

	_, err := tb.Publish(context.Background(), event.WorkApproved, event.Payload{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNestedPublishRecordsParent(t *testing.T) {
	tb := newTestBus(t)
	var childID uuid.UUID

	tb.register(t, event.WorkApproved, "chain", func(ctx context.Context, _ event.EventType, _ event.Payload) error {
		res, err := tb.Publish(ctx, event.BountyClaimAccepted, event.Payload{})
		if err != nil {
			return err
		}
		childID = res.EventID
		return nil
	})

	res, err := tb.Publish(context.Background(), event.WorkApproved, event.Payload{})
	require.NoError(t, err)

	child, err := tb.store.Events().Get(context.Background(), childID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentEventID)
	assert.Equal(t, res.EventID, *child.ParentEventID)

	parent, err := tb.store.Events().Get(context.Background(), res.EventID)
	require.NoError(t, err)
	assert.Nil(t, parent.ParentEventID)
}

func TestBusWithoutLoggerOrMetrics(t *testing.T) {
	store := memory.NewStore()
	registry := event.NewListenerRegistry()
	bus := NewBus(store.Events(), dispatch.NewSyncBackend(registry, nil, nil), nil, nil, Config{})

	l, err := registry.Register("failing", func(context.Context, event.EventType, event.Payload) error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	require.NoError(t, bus.RegisterListener(event.WorkApproved, l))

	res, err := bus.Publish(context.Background(), event.WorkApproved, event.Payload{})
	require.NoError(t, err)
	assert.Len(t, res.Failed(), 1)
}
