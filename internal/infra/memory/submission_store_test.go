package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-grading-service/internal/domain"
)

func TestSubmissionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	if _, err := store.Create(ctx, domain.Submission{ID: "s1", QuizID: "10", UserID: "5", Status: domain.StatusInProgress, StartedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}

	answers := map[string]string{"1": "A"}
	sub, err := store.MarkSubmitted(ctx, "s1", answers, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	answers["1"] = "mutated"
	if sub.Status != domain.StatusSubmitted || sub.SubmittedAt == nil || sub.Answers["1"] != "A" {
		t.Fatalf("unexpected submitted record %+v", sub)
	}

	if _, err := store.MarkSubmitted(ctx, "s1", nil, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on resubmit, got %v", err)
	}

	graded, applied, err := store.MarkGraded(ctx, "s1", 3, 3, now.Add(2*time.Minute))
	if err != nil || !applied {
		t.Fatalf("mark graded: applied=%v err=%v", applied, err)
	}
	if *graded.Score != 3 || *graded.MaxScore != 3 || graded.GradedAt == nil {
		t.Fatalf("unexpected graded record %+v", graded)
	}

	again, applied, err := store.MarkGraded(ctx, "s1", 0, 10, now.Add(3*time.Minute))
	if err != nil || applied {
		t.Fatalf("expected no-op on graded record, applied=%v err=%v", applied, err)
	}
	if *again.Score != 3 || *again.MaxScore != 3 || !again.GradedAt.Equal(*graded.GradedAt) {
		t.Fatalf("graded record changed: %+v", again)
	}
}

func TestSubmissionStoreRejectsSkippingSubmit(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	_, _ = store.Create(ctx, domain.Submission{ID: "s1", Status: domain.StatusInProgress})

	if _, _, err := store.MarkGraded(ctx, "s1", 1, 1, time.Now()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	sub, _ := store.Get(ctx, "s1")
	if sub.Status != domain.StatusInProgress || sub.Score != nil {
		t.Fatalf("record changed: %+v", sub)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := store.MarkGraded(ctx, "missing", 1, 1, time.Now()); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmissionStoreConcurrentGradeAppliesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	_, _ = store.Create(ctx, domain.Submission{ID: "s1", Status: domain.StatusInProgress})
	_, _ = store.MarkSubmitted(ctx, "s1", map[string]string{"1": "A"}, time.Now())

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			if _, ok, err := store.MarkGraded(ctx, "s1", score, 3, time.Now()); err == nil && ok {
				applied.Add(1)
			}
		}(i % 4)
	}
	wg.Wait()

	if applied.Load() != 1 {
		t.Fatalf("expected exactly one applied grade, got %d", applied.Load())
	}
}

func TestSubmissionStoreListings(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = store.Create(ctx, domain.Submission{ID: "b", QuizID: "q1", UserID: "u1", Status: domain.StatusInProgress, StartedAt: base.Add(time.Second)})
	_, _ = store.Create(ctx, domain.Submission{ID: "a", QuizID: "q1", UserID: "u2", Status: domain.StatusInProgress, StartedAt: base})
	_, _ = store.Create(ctx, domain.Submission{ID: "c", QuizID: "q2", UserID: "u1", Status: domain.StatusInProgress, StartedAt: base.Add(2 * time.Second)})
	_, _ = store.MarkSubmitted(ctx, "c", nil, base)

	byQuiz, _ := store.ListByQuiz(ctx, "q1")
	if len(byQuiz) != 2 || byQuiz[0].ID != "a" || byQuiz[1].ID != "b" {
		t.Fatalf("unexpected quiz listing %+v", byQuiz)
	}
	byUser, _ := store.ListByUser(ctx, "u1")
	if len(byUser) != 2 || byUser[0].ID != "b" || byUser[1].ID != "c" {
		t.Fatalf("unexpected user listing %+v", byUser)
	}
	pending, _ := store.ListByStatus(ctx, domain.StatusSubmitted)
	if len(pending) != 1 || pending[0].ID != "c" {
		t.Fatalf("unexpected pending listing %+v", pending)
	}
	empty, _ := store.ListByUser(ctx, "nobody")
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}
