package accounts

import (
	"context"
	"sync"
)

// NotificationKind tags the template a Notifier should render.
type NotificationKind = string

const (
	// NotificationVerify asks the user to confirm their email address
	NotificationVerify NotificationKind = "VERIFY"
	// NotificationReset carries a password reset link
	NotificationReset NotificationKind = "RESET"
	// NotificationWelcome greets a freshly verified account
	NotificationWelcome NotificationKind = "WELCOME"
)

// Notification is a typed request for the external mail collaborator.
type Notification struct {
	Kind      NotificationKind
	Recipient string
	Data      map[string]any
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, notification Notification) error {
	return nil
}

// Dispatcher fans notifications out to a Notifier from a bounded queue.
// Dispatch never blocks the caller: when the queue is saturated the
// notification is dropped with a warning, since every flow that sends one
// also has a resend path.
type Dispatcher struct {
	notifier Notifier
	queue    chan Notification
	logger   Logger
	wg       sync.WaitGroup
	once     sync.Once
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	queueSize int
	workers   int
	logger    Logger
}

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(size int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

// WithWorkers sets how many goroutines drain the queue.
func WithWorkers(workers int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

// WithDispatcherLogger overrides the dispatcher logger.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDispatcher starts the worker pool. Close releases it.
func NewDispatcher(notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	options := &dispatcherOptions{
		queueSize: 64,
		workers:   1,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if notifier == nil {
		notifier = noopNotifier{}
	}

	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan Notification, options.queueSize),
		logger:   options.logger,
	}

	for i := 0; i < options.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for notification := range d.queue {
		if err := d.notifier.Send(context.Background(), notification); err != nil {
			d.logger.Warn("notification send failed",
				"kind", notification.Kind,
				"recipient", notification.Recipient,
				"error", err,
			)
		}
	}
}

// Dispatch enqueues a notification without blocking. Delivery is
// best-effort; account operations never wait on it.
func (d *Dispatcher) Dispatch(notification Notification) {
	select {
	case d.queue <- notification:
	default:
		d.logger.Warn("notification queue full, dropping",
			"kind", notification.Kind,
			"recipient", notification.Recipient,
		)
	}
}

// Close stops accepting notifications and waits for in-flight sends.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
