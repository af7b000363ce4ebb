// Package queue is a durable at-least-once work queue on Redis lists.
//
// Every queue owns three lists: <name>:pending, <name>:processing and <name>:failed.
// A consumer atomically moves an envelope from pending to processing, and removes it
// once it acknowledges or fails the job. Envelopes left in processing by a crashed
// consumer are moved back to pending by Recover.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"filemanager/internal/cache"
)

// DefaultMaxAttempts is used when a queue is built with a non-positive attempt limit.
const DefaultMaxAttempts = 3

// Envelope wraps a job payload while it travels through the queue.
type Envelope struct {
	ID         string          `json:"id"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error,omitempty"`
	FailedAt   *time.Time      `json:"failedAt,omitempty"`
}

// Delivery is an envelope handed to a consumer. It must be passed back to Ack or Fail.
type Delivery struct {
	Envelope
	raw string
}

// Decode unmarshals the job payload into v.
func (d *Delivery) Decode(v any) error {
	if err := json.Unmarshal(d.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode payload of job %s: %w", d.ID, err))
	}
	return nil
}

// Stats holds the lengths of the queue lists.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// Queue is a named Redis-backed work queue.
type Queue struct {
	rdb         *redis.Client
	name        string
	maxAttempts int
}

// New returns the queue called name on the given Redis client.
func New(client *cache.Client, name string, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Queue{rdb: client.Redis(), name: name, maxAttempts: maxAttempts}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

func (q *Queue) pendingKey() string    { return q.name + ":pending" }
func (q *Queue) processingKey() string { return q.name + ":processing" }
func (q *Queue) failedKey() string     { return q.name + ":failed" }

// Enqueue adds payload to the queue and returns the job id.
func (q *Queue) Enqueue(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode job payload: %w", err)
	}
	env := Envelope{
		ID:         uuid.New().String(),
		EnqueuedAt: time.Now().UTC(),
		Payload:    body,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode job envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.pendingKey(), raw).Err(); err != nil {
		return "", fmt.Errorf("enqueue on %s: %w", q.name, err)
	}
	return env.ID, nil
}

// Dequeue waits up to timeout for a job and moves it to the processing list.
// It returns nil, nil when no job arrived in time.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.rdb.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue from %s: %w", q.name, err)
	}

	d := &Delivery{raw: raw}
	if err := json.Unmarshal([]byte(raw), &d.Envelope); err != nil {
		// Unreadable envelopes can never succeed; park them with the failures.
		if _, perr := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.processingKey(), 1, raw)
			pipe.LPush(ctx, q.failedKey(), raw)
			return nil
		}); perr != nil {
			return nil, fmt.Errorf("park malformed job on %s: %w", q.name, perr)
		}
		return nil, Permanent(fmt.Errorf("malformed job envelope on %s: %w", q.name, err))
	}
	return d, nil
}

// Ack removes a finished job from the processing list.
func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.rdb.LRem(ctx, q.processingKey(), 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", d.ID, err)
	}
	return nil
}

// Fail removes a job from the processing list and either retries it or moves it to the
// failed list. It reports whether the job was re-queued.
func (q *Queue) Fail(ctx context.Context, d *Delivery, cause error) (bool, error) {
	next := d.Envelope
	next.Attempts++

	retry := !IsPermanent(cause) && next.Attempts < q.maxAttempts
	target := q.pendingKey()
	if !retry {
		now := time.Now().UTC()
		target = q.failedKey()
		next.FailedAt = &now
		if cause != nil {
			next.Error = cause.Error()
		}
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode job envelope: %w", err)
	}

	if _, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, d.raw)
		pipe.LPush(ctx, target, raw)
		return nil
	}); err != nil {
		return false, fmt.Errorf("fail job %s: %w", d.ID, err)
	}
	return retry, nil
}

// Recover moves every job left in processing back to pending and returns how many moved.
// It is meant to run when a consumer starts, before it dequeues.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.rdb.LMove(ctx, q.processingKey(), q.pendingKey(), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover %s: %w", q.name, err)
		}
		moved++
	}
}

// Stats returns the current list lengths.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.Pipeline()
	pending := pipe.LLen(ctx, q.pendingKey())
	processing := pipe.LLen(ctx, q.processingKey())
	failed := pipe.LLen(ctx, q.failedKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("stats of %s: %w", q.name, err)
	}
	return Stats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Failed:     failed.Val(),
	}, nil
}

// Failed returns up to limit envelopes from the failed list, newest first.
func (q *Queue) Failed(ctx context.Context, limit int64) ([]Envelope, error) {
	if limit <= 0 {
		limit = 20
	}
	raws, err := q.rdb.LRange(ctx, q.failedKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list failed jobs of %s: %w", q.name, err)
	}
	out := make([]Envelope, 0, len(raws))
	for _, raw := range raws {
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		out = append(out, env)
	}
	return out, nil
}
