package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-grading-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionRepository.
// Every transition checks and writes under one lock, which makes it a compare-and-set.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions map[string]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		submissions: make(map[string]domain.Submission),
	}
}

func (s *SubmissionStore) Create(_ context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[sub.ID]; ok {
		return domain.Submission{}, fmt.Errorf("submission %s already exists", sub.ID)
	}
	s.submissions[sub.ID] = sub.Clone()
	return sub.Clone(), nil
}

func (s *SubmissionStore) Get(_ context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (s *SubmissionStore) MarkSubmitted(_ context.Context, id string, answers map[string]string, at time.Time) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if sub.Status != domain.StatusInProgress {
		return domain.Submission{}, fmt.Errorf("submit %s in status %s: %w", id, sub.Status, domain.ErrInvalidTransition)
	}

	sub.Answers = make(map[string]string, len(answers))
	for k, v := range answers {
		sub.Answers[k] = v
	}
	sub.Status = domain.StatusSubmitted
	submittedAt := at
	sub.SubmittedAt = &submittedAt
	s.submissions[id] = sub
	return sub.Clone(), nil
}

func (s *SubmissionStore) MarkGraded(_ context.Context, id string, score, maxScore int, at time.Time) (domain.Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, false, domain.ErrSubmissionNotFound
	}
	switch sub.Status {
	case domain.StatusGraded:
		return sub.Clone(), false, nil
	case domain.StatusInProgress:
		return domain.Submission{}, false, fmt.Errorf("grade %s in status %s: %w", id, sub.Status, domain.ErrInvalidTransition)
	}

	gradedAt := at
	sub.Score = &score
	sub.MaxScore = &maxScore
	sub.Status = domain.StatusGraded
	sub.GradedAt = &gradedAt
	s.submissions[id] = sub
	return sub.Clone(), true, nil
}

func (s *SubmissionStore) ListByUser(_ context.Context, userID string) ([]domain.Submission, error) {
	return s.list(func(sub domain.Submission) bool { return sub.UserID == userID }), nil
}

func (s *SubmissionStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	return s.list(func(sub domain.Submission) bool { return sub.QuizID == quizID }), nil
}

func (s *SubmissionStore) ListByStatus(_ context.Context, status domain.Status) ([]domain.Submission, error) {
	return s.list(func(sub domain.Submission) bool { return sub.Status == status }), nil
}

// list returns matches ordered by start time, oldest first.
func (s *SubmissionStore) list(match func(domain.Submission) bool) []domain.Submission {
	s.mu.RLock()
	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if match(sub) {
			out = append(out, sub.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
