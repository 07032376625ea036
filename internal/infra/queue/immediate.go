package queue

import (
	"context"
	"sync"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	dashboard.JobQueue
	SetHandler(handler Handler)
	Close(ctx context.Context) error
}

// Handler executes jobs synchronously or in the background.
type Handler func(ctx context.Context, name string, payload map[string]any)

// ImmediateQueue runs the handler in a goroutine on enqueue.
type ImmediateQueue struct {
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue invokes the handler asynchronously. The job outlives the caller's context.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return nil
	}
	jobCtx := context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		handler(jobCtx, name, typed)
	}()
	return nil
}

// Close waits for running jobs or until ctx is done.
func (q *ImmediateQueue) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ dashboard.JobQueue = (*ImmediateQueue)(nil)
var _ HandlerQueue = (*ImmediateQueue)(nil)
