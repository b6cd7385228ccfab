package grading

import (
	"testing"

	"quiz-grading-service/internal/domain"
)

func TestGradeScenarios(t *testing.T) {
	quiz := twoQuestionQuiz()

	cases := []struct {
		name     string
		answers  map[string]string
		score    int
		maxScore int
	}{
		{"all correct", map[string]string{"q1": "A", "q2": "C"}, 3, 3},
		{"one wrong", map[string]string{"q1": "A", "q2": "Z"}, 1, 3},
		{"no answers", map[string]string{}, 0, 3},
		{"nil answers", nil, 0, 3},
		{"case sensitive", map[string]string{"q1": "a", "q2": "b"}, 0, 3},
		{"no trimming", map[string]string{"q1": " A", "q2": "B "}, 0, 3},
		{"unknown question ignored", map[string]string{"q9": "A", "q2": "B"}, 2, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, maxScore := Grade(quiz, tc.answers)
			if score != tc.score || maxScore != tc.maxScore {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tc.score, tc.maxScore, score, maxScore)
			}
		})
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	quiz := twoQuestionQuiz()
	answers := map[string]string{"q1": "A", "q2": "B"}

	firstScore, firstMax := Grade(quiz, answers)
	for i := 0; i < 50; i++ {
		score, maxScore := Grade(quiz, answers)
		if score != firstScore || maxScore != firstMax {
			t.Fatalf("run %d: expected (%d, %d), got (%d, %d)", i, firstScore, firstMax, score, maxScore)
		}
	}
}

func TestGradeMaxScoreIgnoresAnswersAndTypes(t *testing.T) {
	quiz := domain.Quiz{
		ID: "quiz-2",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.QuestionMultipleChoice, Points: 4, CorrectAnswers: []string{"yes"}},
			{ID: "q2", Type: "SHORT_ANSWER", Points: 5, CorrectAnswers: []string{"paris"}},
			{ID: "q3", Type: domain.QuestionMultipleChoice, Points: 0, CorrectAnswers: []string{"x"}},
			{ID: "q4", Type: domain.QuestionMultipleChoice, Points: 2},
		},
	}

	score, maxScore := Grade(quiz, map[string]string{"q1": "yes", "q2": "paris", "q3": "x", "q4": ""})
	if maxScore != 11 {
		t.Fatalf("expected maxScore 11, got %d", maxScore)
	}
	if score != 4 {
		t.Fatalf("expected only the multiple choice answer to score, got %d", score)
	}
}

func TestGradeEmptyQuiz(t *testing.T) {
	score, maxScore := Grade(domain.Quiz{ID: "empty"}, map[string]string{"q1": "A"})
	if score != 0 || maxScore != 0 {
		t.Fatalf("expected (0, 0), got (%d, %d)", score, maxScore)
	}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Letters",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.QuestionMultipleChoice, Points: 1, CorrectAnswers: []string{"A"}},
			{ID: "q2", Type: domain.QuestionMultipleChoice, Points: 2, CorrectAnswers: []string{"B", "C"}},
		},
	}
}
