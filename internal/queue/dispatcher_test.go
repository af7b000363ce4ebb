package queue

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filemanager/internal/logger"
)

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, payload any) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// stallingEnqueuer fails the first attempt of every payload and holds later attempts
// until release is closed.
type stallingEnqueuer struct {
	mu      sync.Mutex
	seen    map[any]bool
	release chan struct{}
}

func (s *stallingEnqueuer) Enqueue(ctx context.Context, payload any) (string, error) {
	s.mu.Lock()
	first := !s.seen[payload]
	s.seen[payload] = true
	s.mu.Unlock()

	if first {
		return "", errors.New("connection reset by peer")
	}
	select {
	case <-s.release:
		return "", errors.New("connection reset by peer")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestDispatcher_EnqueuesBeforeReturning(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	d := NewDispatcher(q, q.Name(), 10, logger.Discard())

	for i := uint(1); i <= 5; i++ {
		d.Dispatch(context.Background(), testJob{FileID: i})
	}
	assert.Equal(t, Stats{Pending: 5}, mustStats(t, q))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcher_RetriesInBackground(t *testing.T) {
	m := new(MockEnqueuer)
	m.On("Enqueue", mock.Anything, "payload").Return("", errors.New("redis down")).Once()
	m.On("Enqueue", mock.Anything, "payload").Return("id", nil).Once()

	d := NewDispatcher(m, "userQueue", 1, logger.Discard())
	d.Dispatch(context.Background(), "payload")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	m.AssertExpectations(t)
}

func TestDispatcher_LogsJobsThatNeverReachTheQueue(t *testing.T) {
	var buf bytes.Buffer
	m := new(MockEnqueuer)
	m.On("Enqueue", mock.Anything, "welcome-4").Return("", errors.New("redis down")).Twice()

	d := NewDispatcher(m, "userQueue", 1, logger.NewWithWriter(&buf, "info", false))
	d.Dispatch(context.Background(), "welcome-4")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	m.AssertExpectations(t)
	assert.Contains(t, buf.String(), "job dropped")
	assert.Contains(t, buf.String(), "payload=welcome-4")
}

func TestDispatcher_CloseTimeoutLogsPendingJobs(t *testing.T) {
	var buf bytes.Buffer
	stall := &stallingEnqueuer{seen: map[any]bool{}, release: make(chan struct{})}
	d := NewDispatcher(stall, "fileQueue", 10, logger.NewWithWriter(&buf, "info", false))

	for i := 1; i <= 3; i++ {
		d.Dispatch(context.Background(), i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	// The job held by the background goroutine is reported once its attempt ends.
	close(stall.release)
	<-d.done

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "job dropped"), out)
	for _, want := range []string{"payload=1", "payload=2", "payload=3"} {
		assert.Contains(t, out, want)
	}
}

func TestDispatcher_DispatchAfterClose(t *testing.T) {
	t.Run("still enqueues", func(t *testing.T) {
		m := new(MockEnqueuer)
		m.On("Enqueue", mock.Anything, "late").Return("id", nil).Once()

		d := NewDispatcher(m, "userQueue", 1, logger.Discard())
		require.NoError(t, d.Close(context.Background()))
		require.NoError(t, d.Close(context.Background()), "close is idempotent")

		d.Dispatch(context.Background(), "late")
		m.AssertExpectations(t)
	})

	t.Run("failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		m := new(MockEnqueuer)
		m.On("Enqueue", mock.Anything, "late").Return("", errors.New("redis down")).Once()

		d := NewDispatcher(m, "userQueue", 1, logger.NewWithWriter(&buf, "info", false))
		require.NoError(t, d.Close(context.Background()))

		d.Dispatch(context.Background(), "late")
		m.AssertExpectations(t)
		assert.Contains(t, buf.String(), "job dropped")
	})
}

func TestDispatcher_CanceledRequestStillEnqueues(t *testing.T) {
	m := new(MockEnqueuer)
	m.On("Enqueue", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ctx.Err() == nil && ok && time.Until(deadline) <= directTimeout
	}), "job").Return("id", nil).Once()

	d := NewDispatcher(m, "fileQueue", 1, logger.Discard())
	defer d.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, "job")
	m.AssertExpectations(t)
}
