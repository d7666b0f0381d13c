package thirdplace

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handler receives a published event. A returned error or a panic is logged
// and does not stop the remaining handlers.
type Handler func(ctx context.Context, ev Event) error

// Dispatcher routes events to the handlers subscribed to their type, in
// subscription order. Subscriptions last for the dispatcher's lifetime.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	onError  func(error)
	timeout  time.Duration
	metrics  *Metrics
	logger   Logger
}

// NewDispatcher returns a dispatcher with empty registries for every routable
// event type. timeout bounds each handler call; zero means no bound.
func NewDispatcher(timeout time.Duration, metrics *Metrics, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		handlers: map[EventType][]Handler{
			EventNewMessage:  nil,
			EventEditMessage: nil,
		},
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Subscribe appends h to the handlers of t.
func (d *Dispatcher) Subscribe(t EventType, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[t]; !ok {
		return NewError(ErrorUnknownEventType, fmt.Sprintf("invalid event type %q", t))
	}
	if h == nil {
		return NewError(ErrorInvalidArgument, "handler must be a function")
	}
	d.handlers[t] = append(d.handlers[t], h)
	return nil
}

// SetOnError registers a callback receiving every handler failure.
func (d *Dispatcher) SetOnError(fn func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

func (d *Dispatcher) setMetrics(m *Metrics) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics = m
}

// Handlers returns the number of handlers subscribed to t.
func (d *Dispatcher) Handlers(t EventType) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[t])
}

// Publish delivers ev synchronously to every handler of its type. Events
// without a routable type are dropped.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	if ev == nil || !ev.Type().routable() {
		return
	}
	t := ev.Type()

	d.mu.RLock()
	queue, ok := d.handlers[t]
	queue = append([]Handler(nil), queue...)
	onError, metrics := d.onError, d.metrics
	d.mu.RUnlock()
	if !ok || len(queue) == 0 {
		return
	}

	d.logger.Debug("firing chat event", map[string]any{"type": t.String(), "room_id": ev.RoomID(), "handlers": len(queue)})

	for i, h := range queue {
		err := d.call(ctx, h, ev)
		if err == nil {
			continue
		}
		herr := WrapError(ErrorHandler, fmt.Sprintf("%s handler #%d failed", t, i), err)
		metrics.handlerFailed(t)
		d.logger.Error("handler caught an exception", map[string]any{"type": t.String(), "index": i, "error": err.Error()})
		if onError != nil {
			d.notify(onError, herr)
		}
	}
}

// notify runs the error callback; a panic in it is logged and dropped so
// Publish still returns normally.
func (d *Dispatcher) notify(onError func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("error callback panicked", map[string]any{"panic": fmt.Sprint(r), "error": err.Error()})
		}
	}()
	onError(err)
}

func (d *Dispatcher) call(ctx context.Context, h Handler, ev Event) error {
	if d.timeout <= 0 {
		return safeCall(ctx, h, ev)
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- safeCall(hctx, h, ev) }()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		// The handler keeps running in the background; its result is discarded.
		return fmt.Errorf("handler abandoned: %w", hctx.Err())
	}
}

func safeCall(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
