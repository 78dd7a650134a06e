package membership

import (
	"context"
	"sync"
)

// EventKind identifies a notification event on the bus. The wire names
// predate this package and are kept stable for observability tooling.
type EventKind string

const (
	EventWelcome       EventKind = "email:welcome"
	EventVerifyEmail   EventKind = "email:verify_email"
	EventResetPassword EventKind = "email:reset_password"
	EventNewPost       EventKind = "email:new_post"
)

// WelcomeEmail is published when an account is registered.
type WelcomeEmail struct {
	To   string
	Name string
}

// VerifyEmailMessage is published when an account requests email verification.
type VerifyEmailMessage struct {
	To    string
	Name  string
	Token string
}

// ResetPasswordEmail is published when a password reset is requested.
type ResetPasswordEmail struct {
	To    string
	Name  string
	Token string
}

// NewPostEmail is the broadcast payload for a freshly published post. The
// recipient set is resolved by the dispatcher, not carried in the payload.
type NewPostEmail struct {
	Title      string
	Content    string
	Slug       string
	CoverImage string
}

// EventHandler consumes a published payload. Errors are tracked per
// handler for logging; they never reach the publisher.
type EventHandler func(ctx context.Context, payload any) error

// Bus is an in-process publish/subscribe register keyed by event kind.
// Subscriptions happen once during process initialization; Publish may be
// called from any goroutine afterwards.
type Bus struct {
	logger Logger

	mu       sync.RWMutex
	handlers map[EventKind][]EventHandler
	inflight sync.WaitGroup
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		logger:   defLogger{},
		handlers: make(map[EventKind][]EventHandler),
	}
}

func (b *Bus) WithLogger(logger Logger) *Bus {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Subscribe registers a handler for a kind. Handlers for the same kind run
// in subscription order.
func (b *Bus) Subscribe(kind EventKind, handler EventHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], handler)
	b.mu.Unlock()
}

// Publish schedules every handler subscribed to kind and returns without
// waiting for any of them. Handlers for one publication run sequentially
// in subscription order; a failing or panicking handler is logged and does
// not stop the rest.
func (b *Bus) Publish(ctx context.Context, kind EventKind, payload any) {
	b.mu.RLock()
	handlers := b.handlers[kind]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("event %q published with no subscribers", kind)
		return
	}

	// The publisher's success must not depend on delivery, so handlers get
	// a context that survives the publisher's cancellation.
	hctx := context.WithoutCancel(ctx)

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		for i, handler := range handlers {
			b.run(hctx, kind, i, handler, payload)
		}
	}()
}

func (b *Bus) run(ctx context.Context, kind EventKind, idx int, handler EventHandler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler %d for event %q panicked: %v", idx, kind, r)
		}
	}()

	if err := handler(ctx, payload); err != nil {
		b.logger.Error("handler %d for event %q failed: %v", idx, kind, err)
	}
}

// Wait blocks until every published event has been fully delivered. Meant
// for shutdown paths and tests.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
