// Package dispatcher delivers recruitment domain events to subscribed handlers.
//
// Synchronous dispatch runs handlers in registration order and stops at the
// first failure. Asynchronous dispatch never blocks the caller; the events of
// one case are delivered in the order they were dispatched, while different
// cases are delivered concurrently.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/recruitment-engine/internal/domain/event"
)

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers a named handler that receives every event type
	SubscribeAll(name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch sends event to all registered handlers synchronously
	// Returns first error encountered (handlers run in order)
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync queues event for delivery and returns immediately
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and waits for queued ones to be delivered
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// delivery is one queued asynchronous event
type delivery struct {
	ctx context.Context
	evt *event.Event
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	// catchAll handlers run after the type-specific ones
	catchAll []HandlerInfo
	logger   Logger

	// qmu guards queues and closed; a case has a queue while its drainer runs
	qmu    sync.Mutex
	queues map[int64][]delivery
	closed bool
	wg     sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		queues:   make(map[int64][]delivery),
		logger:   nopLogger{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler for an event type with an auto-generated name
func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribe(eventType, fmt.Sprintf("handler-%d", len(d.handlers[eventType])), handler)
}

// SubscribeNamed registers a handler with a specific name for debugging
func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribe(eventType, name, handler)
}

func (d *eventDispatcher) subscribe(eventType event.Type, name string, handler Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})
	d.logger.Info("Handler registered", "event_type", eventType, "handler_name", name)
}

// SubscribeAll registers a handler for every event type
func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.catchAll = append(d.catchAll, HandlerInfo{Name: name, Handler: handler})
	d.logger.Info("Catch-all handler registered", "handler_name", name)
}

// Unsubscribe removes a handler by name, from eventType and from the catch-all handlers
func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = without(d.handlers[eventType], name)
	d.catchAll = without(d.catchAll, name)
	d.logger.Info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

func without(handlers []HandlerInfo, name string) []HandlerInfo {
	kept := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	return kept
}

// Dispatch sends event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.isClosed() {
		return fmt.Errorf("dispatcher is closed")
	}
	if !evt.Type.IsValid() {
		return fmt.Errorf("unknown event type: %s", evt.Type)
	}

	for _, info := range d.handlersFor(evt.Type) {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logger.Error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"case_id", evt.CaseID,
				"handler_name", info.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}
	return nil
}

// DispatchAsync appends event to the queue of its case. The first event of an
// idle case starts a drainer that delivers the queue in order and exits once
// it is empty.
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.qmu.Lock()
	defer d.qmu.Unlock()

	if d.closed {
		d.logger.Error("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	d.wg.Add(1)
	queue, draining := d.queues[evt.CaseID]
	d.queues[evt.CaseID] = append(queue, delivery{ctx: ctx, evt: evt})
	if !draining {
		go d.drain(evt.CaseID)
	}
}

func (d *eventDispatcher) drain(caseID int64) {
	for {
		d.qmu.Lock()
		queue := d.queues[caseID]
		if len(queue) == 0 {
			delete(d.queues, caseID)
			d.qmu.Unlock()
			return
		}
		next := queue[0]
		d.queues[caseID] = queue[1:]
		d.qmu.Unlock()

		d.deliver(next)
		d.wg.Done()
	}
}

// deliver runs every handler of an async event; a failing handler does not
// stop the others
func (d *eventDispatcher) deliver(dl delivery) {
	for _, info := range d.handlersFor(dl.evt.Type) {
		if err := d.safeExecute(dl.ctx, dl.evt, info); err != nil {
			d.logger.Error("Async handler error",
				"event_type", dl.evt.Type,
				"event_id", dl.evt.ID,
				"case_id", dl.evt.CaseID,
				"handler_name", info.Name,
				"error", err,
			)
		}
	}
}

// handlersFor returns a snapshot of the type-specific then catch-all handlers
func (d *eventDispatcher) handlersFor(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]HandlerInfo, 0, len(d.handlers[eventType])+len(d.catchAll))
	out = append(out, d.handlers[eventType]...)
	return append(out, d.catchAll...)
}

// ListHandlers returns registered handlers for an event type, without their functions
func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]HandlerInfo, 0, len(d.handlers[eventType]))
	for _, h := range d.handlers[eventType] {
		result = append(result, HandlerInfo{Name: h.Name, EventType: h.EventType, Description: h.Description})
	}
	return result
}

func (d *eventDispatcher) isClosed() bool {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return d.closed
}

// Close shuts down the dispatcher and waits for queued events to be delivered
func (d *eventDispatcher) Close() error {
	d.qmu.Lock()
	if d.closed {
		d.qmu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.qmu.Unlock()

	d.logger.Info("Closing dispatcher, waiting for queued events")
	d.wg.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logger.Error("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"panic", r,
			)
		}
	}()

	return info.Handler(ctx, evt)
}
