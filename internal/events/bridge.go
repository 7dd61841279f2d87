package events

import (
	"log/slog"
	"sync"
)

// DefaultPendingCap bounds the pending-event buffer. Events that arrive
// before any handler registers are held up to this many entries; beyond
// that the oldest entry is discarded.
const DefaultPendingCap = 256

// Handler processes a single delivered event payload.
type Handler func(payload any)

// PendingEvent is an event that arrived with no registered handler. It is
// held until the next registration drains the buffer.
type PendingEvent struct {
	Name    string
	Payload any
}

// Bridge routes named events to handler sets registered by application
// subsystems. A subsystem registers a map of event name to handler under an
// instance id on mount and unregisters on unmount. Events delivered while
// no handler is bound are buffered FIFO and replayed once on the next
// registration; entries still undeliverable after that drain are dropped.
//
// The bridge is constructed once per process and owns its registry and
// buffer as instance state; Register and Unregister are its only mutation
// surface.
type Bridge struct {
	mu         sync.Mutex
	handlers   map[string]map[string]Handler // instance id -> event name -> handler
	order      []string                      // instance ids in registration order
	pending    []PendingEvent
	pendingCap int
	logger     *slog.Logger
}

// NewBridge creates a bridge logging registration lifecycle and dropped
// events through logger. Pass a discard logger to silence it (tests do).
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		handlers:   make(map[string]map[string]Handler),
		pendingCap: DefaultPendingCap,
		logger:     logger,
	}
}

// Register binds handlers under instanceID, then drains the pending buffer
// once. Registering an id twice replaces its previous handler set.
func (b *Bridge) Register(instanceID string, handlers map[string]Handler) {
	b.mu.Lock()
	if _, exists := b.handlers[instanceID]; !exists {
		b.order = append(b.order, instanceID)
	}
	bound := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		bound[name] = h
	}
	b.handlers[instanceID] = bound
	buffered := b.pending
	b.pending = nil
	b.mu.Unlock()

	b.logger.Info("event bridge registration", "instance", instanceID, "events", len(bound))

	// One drain attempt per buffered event. Entries still undeliverable are
	// dropped, never re-buffered, so stale events cannot replay forever.
	for _, ev := range buffered {
		if !b.deliver(ev.Name, ev.Payload, false) {
			b.logger.Warn("dropping undeliverable buffered event", "event", ev.Name)
		}
	}
}

// Unregister removes the handler set bound under instanceID.
func (b *Bridge) Unregister(instanceID string) {
	b.mu.Lock()
	_, existed := b.handlers[instanceID]
	delete(b.handlers, instanceID)
	for i, id := range b.order {
		if id == instanceID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if existed {
		b.logger.Info("event bridge teardown", "instance", instanceID)
	}
}

// Deliver invokes every handler bound to name across all registered
// instances, in registration order, and reports whether at least one
// handler fired. An undelivered event is appended to the pending buffer.
//
// Each handler invocation is isolated: a panicking handler is recovered
// and logged so the remaining handlers in the same dispatch still run.
func (b *Bridge) Deliver(name string, payload any) bool {
	return b.deliver(name, payload, true)
}

func (b *Bridge) deliver(name string, payload any, buffer bool) bool {
	b.mu.Lock()
	var targets []Handler
	for _, id := range b.order {
		if h, ok := b.handlers[id][name]; ok {
			targets = append(targets, h)
		}
	}
	if len(targets) == 0 {
		if buffer {
			if len(b.pending) >= b.pendingCap {
				dropped := b.pending[0]
				b.pending = b.pending[1:]
				b.logger.Warn("pending buffer full, dropping oldest event", "event", dropped.Name)
			}
			b.pending = append(b.pending, PendingEvent{Name: name, Payload: payload})
		}
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	for _, h := range targets {
		b.invoke(name, h, payload)
	}
	return true
}

func (b *Bridge) invoke(name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", name, "panic", r)
		}
	}()
	h(payload)
}

// PendingCount reports the number of buffered undelivered events.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
