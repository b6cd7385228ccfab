package worker

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/domain"
)

// PendingGrading lists submissions still waiting for a grade.
type PendingGrading interface {
	Grading
	ListPending(ctx context.Context) ([]domain.Submission, error)
}

// Scheduler periodically re-drives grading for every SUBMITTED submission,
// recovering tasks the dispatcher dropped or never received.
type Scheduler struct {
	grading     PendingGrading
	interval    time.Duration
	concurrency int
	logger      *log.Logger
}

func NewScheduler(grading PendingGrading, interval time.Duration, concurrency int, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{grading: grading, interval: interval, concurrency: concurrency, logger: logger}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Printf("grading scheduler started, interval %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			graded, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Printf("scheduler tick: %v", err)
				continue
			}
			if graded > 0 {
				s.logger.Printf("scheduler graded %d pending submissions", graded)
			}
		}
	}
}

// RunOnce grades every pending submission and returns how many were graded.
// A failure on one submission is logged and does not stop the rest.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	pending, err := s.grading.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending submissions: %w", err)
	}

	var graded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, sub := range pending {
		req := app.RequestFor(sub)
		g.Go(func() error {
			if err := gradeAndApply(gctx, s.grading, req); err != nil {
				s.logger.Printf("scheduler: %v", err)
				return nil
			}
			graded.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(graded.Load()), nil
}
