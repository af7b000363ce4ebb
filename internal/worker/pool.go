package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"filemanager/internal/metrics"
	"filemanager/internal/queue"
)

const (
	defaultPollTimeout   = 5 * time.Second
	defaultStatsInterval = 15 * time.Second
	errorBackoff         = time.Second
	ackTimeout           = 5 * time.Second
)

// Handler processes one delivery. A nil error acknowledges the job.
type Handler func(ctx context.Context, d *queue.Delivery) error

// Consumer is the consumer side of a queue.
type Consumer interface {
	Name() string
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	Fail(ctx context.Context, d *queue.Delivery, cause error) (bool, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// Pool runs a fixed number of goroutines consuming one queue.
type Pool struct {
	queue         Consumer
	handler       Handler
	concurrency   int
	pollTimeout   time.Duration
	statsInterval time.Duration
	logger        *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPollTimeout sets how long one Dequeue call waits for a job.
func WithPollTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

// WithStatsInterval sets how often queue depths are published as metrics.
func WithStatsInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.statsInterval = d
		}
	}
}

// NewPool creates a pool of concurrency consumers. concurrency <= 0 means 1.
func NewPool(q Consumer, handler Handler, concurrency int, logger *slog.Logger, opts ...PoolOption) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		queue:         q,
		handler:       handler,
		concurrency:   concurrency,
		pollTimeout:   defaultPollTimeout,
		statsInterval: defaultStatsInterval,
		logger:        logger.With("queue", q.Name()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes until ctx is canceled. Jobs already dequeued are finished before it returns.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started", "concurrency", p.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error {
			p.consume(gctx, i)
			return nil
		})
	}
	g.Go(func() error {
		p.reportStats(gctx)
		return nil
	})

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}

func (p *Pool) consume(ctx context.Context, id int) {
	log := p.logger.With("consumer", id)
	for {
		if ctx.Err() != nil {
			return
		}

		d, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", "error", err)
			if !queue.IsPermanent(err) {
				sleep(ctx, errorBackoff)
			}
			continue
		}
		if d == nil {
			continue
		}

		p.process(context.WithoutCancel(ctx), log, d)
	}
}

// process runs the handler once and settles the delivery with the queue.
func (p *Pool) process(ctx context.Context, log *slog.Logger, d *queue.Delivery) {
	log = log.With("job_id", d.ID, "attempt", d.Attempts+1)
	start := time.Now()

	herr := p.safeHandle(ctx, d)

	settleCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()

	if herr == nil {
		if err := p.queue.Ack(settleCtx, d); err != nil {
			log.Error("ack failed", "error", err)
		}
		metrics.RecordJob(p.queue.Name(), metrics.OutcomeDone, time.Since(start))
		return
	}

	requeued, err := p.queue.Fail(settleCtx, d, herr)
	if err != nil {
		log.Error("failing job failed", "error", err, "cause", herr)
		return
	}
	outcome := metrics.OutcomeFailed
	if requeued {
		outcome = metrics.OutcomeRetried
	}
	metrics.RecordJob(p.queue.Name(), outcome, time.Since(start))
	log.Warn("job failed", "error", herr, "requeued", requeued)
}

// safeHandle turns a handler panic into a permanent failure.
func (p *Pool) safeHandle(ctx context.Context, d *queue.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = queue.Permanent(errors.New("handler panicked"))
			p.logger.Error("handler panicked", "job_id", d.ID, "panic", r)
		}
	}()
	return p.handler(ctx, d)
}

func (p *Pool) reportStats(ctx context.Context) {
	ticker := time.NewTicker(p.statsInterval)
	defer ticker.Stop()

	for {
		stats, err := p.queue.Stats(ctx)
		if err == nil {
			metrics.SetQueueDepth(p.queue.Name(), stats.Pending, stats.Processing, stats.Failed)
		} else if ctx.Err() == nil {
			p.logger.Warn("queue stats unavailable", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
