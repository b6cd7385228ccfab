package grading

import (
	"context"

	"quiz-grading-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Engine grades requests in-process against quizzes from a QuizRepository.
type Engine struct {
	quizzes QuizRepository
}

func NewEngine(quizzes QuizRepository) *Engine {
	return &Engine{quizzes: quizzes}
}

// Grade loads the referenced quiz and scores the answers. A quiz that cannot
// be found surfaces as domain.ErrQuizNotFound.
func (e *Engine) Grade(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.GradingResponse{}, err
	}
	score, maxScore := Grade(quiz, req.Answers)
	return domain.GradingResponse{
		SubmissionID: req.SubmissionID,
		Score:        score,
		MaxScore:     maxScore,
	}, nil
}
