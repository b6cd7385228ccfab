package grading

import (
	"context"
	"log"

	"quiz-grading-service/internal/domain"
)

// QuizInvalidator evicts cached quiz content.
type QuizInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// InvalidateOnQuizChange returns an event handler that evicts the cached copy
// of a quiz whenever the quiz is updated or deleted upstream.
func InvalidateOnQuizChange(cache QuizInvalidator, logger *log.Logger) func(ctx context.Context, topic string, ev domain.Event) error {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, _ string, ev domain.Event) error {
		switch ev.Type {
		case domain.EventQuizUpdated, domain.EventQuizDeleted:
		default:
			return nil
		}
		quizID := ev.Field("quizId")
		if quizID == "" {
			return nil
		}
		if err := cache.Invalidate(ctx, quizID); err != nil {
			return err
		}
		logger.Printf("evicted quiz %s from cache after %s", quizID, ev.Type)
		return nil
	}
}
