package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type queuedEvent struct {
	ctx context.Context
	ev  Event
}

// Async hands events to a background goroutine so Emit never blocks the caller. Each
// delivery runs on the caller's context values without its cancellation, bounded by
// timeout. When the queue is full the event is dropped and logged.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *slog.Logger
	queue   chan queuedEvent
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next Notifier, buffer int, timeout time.Duration, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan queuedEvent, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Emit(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		a.logger.Warn("in-app event dropped; queue full", "type", ev.Type)
	}
}

func (a *Async) run() {
	defer close(a.done)
	for item := range a.queue {
		ctx, cancel := context.WithTimeout(item.ctx, a.timeout)
		a.next.Emit(ctx, item.ev)
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}
