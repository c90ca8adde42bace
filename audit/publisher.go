package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by an async publisher when the buffer cannot
// take another event. The caller decides whether dropping is acceptable.
var ErrBufferFull = errors.New("audit buffer full")

// Store persists events. Swap with concrete storage without touching the
// emitting code.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the port domain packages depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher fills in event identity and timestamps, then hands events to a
// Store. Synchronous by default; WithAsyncBuffer moves persistence onto a
// background worker so emission never blocks the caller on storage latency.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	ch        chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// buffer capacity. When the buffer is full, Emit returns ErrBufferFull and
// the event is dropped.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.ch = make(chan Event, n)
		}
	}
}

// WithLogger attaches a logger for async persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPublisher returns a publisher writing to the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ch != nil {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Emit records one event. Zero-valued ID, Timestamp and Category are filled
// in from the action and clock.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}

	if p.ch == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.ch <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close drains buffered events and stops the worker. Safe to call more than
// once; a nil-buffer publisher closes immediately.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	// Emission contexts are request-scoped and may be gone by the time the
	// event reaches the worker; persistence gets its own context.
	ctx := context.Background()
	for event := range p.ch {
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "audit event dropped",
				"action", event.Action,
				"merchant_id", event.MerchantID,
				"error", err,
			)
		}
	}
}
