package grading

import "quiz-grading-service/internal/domain"

// Grade scores answers against quiz. Every question counts towards maxScore;
// only multiple choice questions whose answer exactly matches one of the
// correct answers add to score.
func Grade(quiz domain.Quiz, answers map[string]string) (score, maxScore int) {
	for _, q := range quiz.Questions {
		maxScore += q.Points
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		if isCorrect(q, answer) {
			score += q.Points
		}
	}
	return score, maxScore
}

func isCorrect(q domain.Question, answer string) bool {
	if q.Type != domain.QuestionMultipleChoice {
		return false
	}
	for _, correct := range q.CorrectAnswers {
		if correct == answer {
			return true
		}
	}
	return false
}
