package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quiz-grading-service/internal/domain"
)

// SubmissionRepository abstracts how submissions are stored (in-memory, Postgres).
// The Mark* methods are conditional updates: each checks the current status and
// writes atomically, so concurrent callers can never both apply the same transition.
type SubmissionRepository interface {
	Create(ctx context.Context, sub domain.Submission) (domain.Submission, error)
	Get(ctx context.Context, id string) (domain.Submission, error)
	// MarkSubmitted moves IN_PROGRESS to SUBMITTED.
	MarkSubmitted(ctx context.Context, id string, answers map[string]string, at time.Time) (domain.Submission, error)
	// MarkGraded moves SUBMITTED to GRADED. applied is false when the record
	// was already GRADED, in which case the stored record is returned unchanged.
	MarkGraded(ctx context.Context, id string, score, maxScore int, at time.Time) (sub domain.Submission, applied bool, err error)
	ListByUser(ctx context.Context, userID string) ([]domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Submission, error)
}

// EventPublisher appends events to the event log.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, ev domain.Event) error
}

// TaskQueue hands grading work to the dispatcher.
type TaskQueue interface {
	Enqueue(ctx context.Context, req domain.GradingRequest) error
}

// NotificationPublisher sends to the inbound notification channel.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// Grader scores a grading request, locally or through a remote engine.
type Grader interface {
	Grade(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error)
}

// SubmissionService owns the submission lifecycle.
type SubmissionService struct {
	repo          SubmissionRepository
	events        EventPublisher
	queue         TaskQueue
	notifications NotificationPublisher
	grader        Grader
	gradeTimeout  time.Duration
	logger        *log.Logger

	now   func() time.Time
	newID func() string
}

func NewSubmissionService(repo SubmissionRepository, events EventPublisher, queue TaskQueue, notifications NotificationPublisher, grader Grader, gradeTimeout time.Duration, logger *log.Logger) *SubmissionService {
	if logger == nil {
		logger = log.Default()
	}
	return &SubmissionService{
		repo:          repo,
		events:        events,
		queue:         queue,
		notifications: notifications,
		grader:        grader,
		gradeTimeout:  gradeTimeout,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Start opens a new IN_PROGRESS submission.
func (s *SubmissionService) Start(ctx context.Context, quizID, userID string) (domain.Submission, error) {
	sub, err := s.repo.Create(ctx, domain.Submission{
		ID:        s.newID(),
		QuizID:    quizID,
		UserID:    userID,
		Answers:   map[string]string{},
		Status:    domain.StatusInProgress,
		StartedAt: s.now(),
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}

	s.emit(ctx, domain.EventSubmissionStarted, map[string]any{
		"submissionId": sub.ID,
		"quizId":       sub.QuizID,
		"userId":       sub.UserID,
	})
	return sub, nil
}

// Submit records the answers, moves the submission to SUBMITTED and queues it for grading.
func (s *SubmissionService) Submit(ctx context.Context, id string, answers map[string]string) (domain.Submission, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	for questionID := range answers {
		if questionID == "" {
			return domain.Submission{}, fmt.Errorf("empty question id: %w", domain.ErrInvalidAnswers)
		}
	}

	sub, err := s.repo.MarkSubmitted(ctx, id, answers, s.now())
	if err != nil {
		return domain.Submission{}, err
	}

	// A lost task is picked up by the scheduler, so enqueue failures do not fail the submit.
	task := domain.GradingRequest{SubmissionID: sub.ID, QuizID: sub.QuizID, Answers: sub.Answers}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.Printf("enqueue grading task for submission %s: %v", sub.ID, err)
	}

	s.emit(ctx, domain.EventSubmissionSubmitted, map[string]any{
		"submissionId": sub.ID,
		"quizId":       sub.QuizID,
		"userId":       sub.UserID,
	})
	return sub, nil
}

// ApplyGradeResult is the single mutation point for grading drivers. Calls on an
// already GRADED submission return it unchanged and emit nothing.
func (s *SubmissionService) ApplyGradeResult(ctx context.Context, id string, score, maxScore int) (domain.Submission, error) {
	sub, applied, err := s.repo.MarkGraded(ctx, id, score, maxScore, s.now())
	if err != nil {
		return domain.Submission{}, err
	}
	if !applied {
		return sub, nil
	}

	s.logger.Printf("graded submission %s with score %d/%d", sub.ID, score, maxScore)
	s.emit(ctx, domain.EventSubmissionGraded, map[string]any{
		"submissionId": sub.ID,
		"quizId":       sub.QuizID,
		"userId":       sub.UserID,
		"score":        score,
		"maxScore":     maxScore,
	})

	notification := domain.Notification{
		Type: domain.NotificationSubmissionGraded,
		Payload: map[string]any{
			"userId":       sub.UserID,
			"submissionId": sub.ID,
			"quizId":       sub.QuizID,
			"score":        score,
			"maxScore":     maxScore,
		},
	}
	if err := s.notifications.Publish(ctx, notification); err != nil {
		s.logger.Printf("publish grading notification for submission %s: %v", sub.ID, err)
	}
	return sub, nil
}

// Grade synchronously grades a submission, bypassing the queue and the scheduler.
// When grading fails the submission keeps its current status.
func (s *SubmissionService) Grade(ctx context.Context, id string) (domain.Submission, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	switch sub.Status {
	case domain.StatusGraded:
		return sub, nil
	case domain.StatusInProgress:
		return domain.Submission{}, fmt.Errorf("grade submission %s in status %s: %w", id, sub.Status, domain.ErrInvalidTransition)
	}

	result, err := s.GradeRequest(ctx, RequestFor(sub))
	if err != nil {
		return domain.Submission{}, err
	}
	return s.ApplyGradeResult(ctx, id, result.Score, result.MaxScore)
}

// GradeRequest invokes the grader under the configured timeout.
func (s *SubmissionService) GradeRequest(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error) {
	if s.gradeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gradeTimeout)
		defer cancel()
	}
	resp, err := s.grader.Grade(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.GradingResponse{}, fmt.Errorf("grade submission %s: timed out: %w", req.SubmissionID, err)
		}
		return domain.GradingResponse{}, err
	}
	return resp, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (domain.Submission, error) {
	return s.repo.Get(ctx, id)
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *SubmissionService) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.repo.ListByQuiz(ctx, quizID)
}

// ListPending returns submissions that are SUBMITTED but not yet GRADED.
func (s *SubmissionService) ListPending(ctx context.Context) ([]domain.Submission, error) {
	return s.repo.ListByStatus(ctx, domain.StatusSubmitted)
}

// RequestFor builds the grading request for a submission.
func RequestFor(sub domain.Submission) domain.GradingRequest {
	return domain.GradingRequest{SubmissionID: sub.ID, QuizID: sub.QuizID, Answers: sub.Answers}
}

func (s *SubmissionService) emit(ctx context.Context, eventType string, fields map[string]any) {
	ev := domain.Event{Type: eventType, Fields: fields, OccurredAt: s.now()}
	if err := s.events.Publish(ctx, domain.TopicSubmissionEvents, ev); err != nil {
		s.logger.Printf("publish %s event: %v", eventType, err)
	}
}
