package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBufferSize = 100
	directTimeout     = time.Second
	retryTimeout      = 5 * time.Second
)

// Enqueuer is the producer side of a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any) (string, error)
}

// Dispatcher hands jobs to a queue without failing the caller.
// Each job is pushed on the caller's goroutine under a short timeout. Jobs that could not
// be pushed are retried once by a background goroutine; jobs lost on the way are logged
// at error level with their payload. Errors are never returned.
type Dispatcher struct {
	queue  Enqueuer
	name   string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan any
	done   chan struct{}
}

// NewDispatcher starts a dispatcher in front of q. bufferSize <= 0 uses a default of 100.
func NewDispatcher(q Enqueuer, name string, bufferSize int, logger *slog.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		queue:  q,
		name:   name,
		logger: logger.With("queue", name),
		jobs:   make(chan any, bufferSize),
		done:   make(chan struct{}),
	}

	go d.run()

	return d
}

// Dispatch enqueues payload. Cancellation of ctx does not stop it.
func (d *Dispatcher) Dispatch(ctx context.Context, payload any) {
	err := d.enqueue(context.WithoutCancel(ctx), payload, directTimeout)
	if err == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.closed {
		select {
		case d.jobs <- payload:
			d.logger.Warn("enqueue failed, retrying in background", "error", err)
			return
		default:
		}
	}
	d.dropped(payload, err)
}

// Close stops accepting retries and waits until pending ones are done or ctx is done.
// Retries still waiting when ctx ends are logged as dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		for payload := range d.jobs {
			d.dropped(payload, ctx.Err())
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for payload := range d.jobs {
		if err := d.enqueue(context.Background(), payload, retryTimeout); err != nil {
			d.dropped(payload, err)
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, payload any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id, err := d.queue.Enqueue(ctx, payload)
	if err != nil {
		return err
	}
	d.logger.Debug("job enqueued", "job_id", id)
	return nil
}

func (d *Dispatcher) dropped(payload any, err error) {
	d.logger.Error("job dropped", "payload", payload, "error", err)
}
