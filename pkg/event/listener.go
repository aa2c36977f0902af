package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnresolvedListener = errors.New("listener reference cannot be resolved")
	ErrUnnamedListener    = errors.New("listener name is required")
)

// Func is the body of a listener.
type Func func(ctx context.Context, eventType EventType, payload Payload) error

// Listener is either a direct function or a reference resolvable by name in
// any process that shares the same Resolver. Both forms carry a stable name
// so they can be deduplicated and shipped to workers.
type Listener struct {
	name string
	fn   Func
}

// Direct wraps fn under name for in-process execution.
func Direct(name string, fn Func) Listener {
	return Listener{name: name, fn: fn}
}

// Reference names a listener that is resolved at execution time.
func Reference(name string) Listener {
	return Listener{name: name}
}

func (l Listener) Name() string {
	return l.name
}

// IsReference reports whether the listener has no attached function.
func (l Listener) IsReference() bool {
	return l.fn == nil
}

// Resolve returns the function to run. Direct listeners return their own
// function; references go through r.
func (l Listener) Resolve(r Resolver) (Func, error) {
	if l.fn != nil {
		return l.fn, nil
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s (no resolver)", ErrUnresolvedListener, l.name)
	}
	return r.Resolve(l.name)
}

func (l Listener) validate() error {
	if l.name == "" {
		return ErrUnnamedListener
	}
	return nil
}

// Resolver maps stable listener names to functions.
type Resolver interface {
	Resolve(name string) (Func, error)
}

// ListenerRegistry is the in-process Resolver. The API and worker processes
// build the same registry at startup.
type ListenerRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{funcs: make(map[string]Func)}
}

// Register binds name to fn and returns a Reference listener for it.
func (r *ListenerRegistry) Register(name string, fn Func) (Listener, error) {
	if name == "" {
		return Listener{}, ErrUnnamedListener
	}
	if fn == nil {
		return Listener{}, fmt.Errorf("listener %s: nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	return Reference(name), nil
}

func (r *ListenerRegistry) Resolve(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedListener, name)
	}
	return fn, nil
}

// Names returns the registered listener names.
func (r *ListenerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
