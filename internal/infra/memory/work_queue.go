package memory

import (
	"context"
	"errors"

	"quiz-grading-service/internal/domain"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("grading queue full")

// WorkQueue is a bounded in-process grading queue; each task is delivered to one consumer.
type WorkQueue struct {
	tasks chan domain.GradingRequest
}

func NewWorkQueue(capacity int) *WorkQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &WorkQueue{tasks: make(chan domain.GradingRequest, capacity)}
}

// Enqueue never blocks: a full queue rejects the task with ErrQueueFull and
// the scheduler grades it later from the SUBMITTED backlog.
func (q *WorkQueue) Enqueue(ctx context.Context, req domain.GradingRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.tasks <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a task is available or ctx is done.
func (q *WorkQueue) Dequeue(ctx context.Context) (domain.GradingRequest, error) {
	select {
	case req := <-q.tasks:
		return req, nil
	case <-ctx.Done():
		return domain.GradingRequest{}, ctx.Err()
	}
}

// Len reports the number of queued tasks.
func (q *WorkQueue) Len() int {
	return len(q.tasks)
}
