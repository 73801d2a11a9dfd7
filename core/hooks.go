package session

import (
	"slices"
	"sync"

	"github.com/parley-ai/parley-core/core/events"
)

// hookRegistry is an explicit event-kind to handler mapping. Handlers are
// registered before Start and invoked synchronously in registration order;
// there is no global registry and no reflection.
type hookRegistry struct {
	mu       sync.RWMutex
	handlers map[events.Kind][]func(events.Event)
	all      []func(events.Event)
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{handlers: map[events.Kind][]func(events.Event){}}
}

func (r *hookRegistry) on(kind events.Kind, handler func(events.Event)) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], handler)
}

// onAny registers a handler for every event the session emits.
func (r *hookRegistry) onAny(handler func(events.Event)) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, handler)
}

func (r *hookRegistry) emit(event events.Event) {
	r.mu.RLock()
	kindHandlers := slices.Clone(r.handlers[event.Kind()])
	allHandlers := slices.Clone(r.all)
	r.mu.RUnlock()

	for _, handler := range kindHandlers {
		handler(event)
	}
	for _, handler := range allHandlers {
		handler(event)
	}
}
