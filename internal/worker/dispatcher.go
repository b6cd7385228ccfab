package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-grading-service/internal/domain"
)

// TaskSource yields grading tasks. Dequeue blocks until a task is available or ctx is done.
type TaskSource interface {
	Dequeue(ctx context.Context) (domain.GradingRequest, error)
}

// Grading is the slice of the submission service the grading drivers use.
type Grading interface {
	GradeRequest(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error)
	ApplyGradeResult(ctx context.Context, id string, score, maxScore int) (domain.Submission, error)
}

// Dispatcher runs a pool of workers that grade queued submissions.
// Failed tasks are logged and dropped; the Scheduler picks them up later.
type Dispatcher struct {
	source  TaskSource
	grading Grading
	workers int
	backoff time.Duration
	logger  *log.Logger
}

func NewDispatcher(source TaskSource, grading Grading, workers int, logger *log.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		source:  source,
		grading: grading,
		workers: workers,
		backoff: time.Second,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		worker := i + 1
		g.Go(func() error {
			d.loop(ctx, worker)
			return nil
		})
	}
	d.logger.Printf("grading dispatcher started with %d workers", d.workers)
	return g.Wait()
}

func (d *Dispatcher) loop(ctx context.Context, worker int) {
	for {
		task, err := d.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Printf("worker %d: dequeue: %v", worker, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.backoff):
			}
			continue
		}
		if err := d.Handle(ctx, task); err != nil {
			d.logger.Printf("worker %d: %v", worker, err)
		}
	}
}

// Handle grades one task and persists the result.
func (d *Dispatcher) Handle(ctx context.Context, task domain.GradingRequest) error {
	if task.SubmissionID == "" {
		return errors.New("drop grading task without submission id")
	}
	return gradeAndApply(ctx, d.grading, task)
}

func gradeAndApply(ctx context.Context, grading Grading, req domain.GradingRequest) error {
	result, err := grading.GradeRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("grade submission %s: %w", req.SubmissionID, err)
	}
	if _, err := grading.ApplyGradeResult(ctx, req.SubmissionID, result.Score, result.MaxScore); err != nil {
		return fmt.Errorf("apply grade for submission %s: %w", req.SubmissionID, err)
	}
	return nil
}
