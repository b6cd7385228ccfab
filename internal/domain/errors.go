package domain

import "errors"

var (
	// ErrSubmissionNotFound is returned when a submission id is unknown.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidTransition is returned when an operation would skip or reverse a lifecycle stage.
	ErrInvalidTransition = errors.New("invalid submission status transition")
	// ErrInvalidAnswers flags a malformed answers payload.
	ErrInvalidAnswers = errors.New("invalid answers payload")
)
