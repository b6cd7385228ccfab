package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-grading-service/internal/domain"
)

// QuizLoader fetches quizzes from the quiz service (GET {baseURL}/quizzes/{id}).
type QuizLoader struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewQuizLoader(baseURL string, timeout time.Duration) *QuizLoader {
	return &QuizLoader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/quizzes/"+url.PathEscape(quizID), nil)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("build quiz request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("quiz request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, domain.ErrQuizNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Quiz{}, fmt.Errorf("quiz service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var wire quizPayload
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	quiz := wire.toDomain()
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}

// The quiz service uses numeric ids and may omit points, which default to 1.
type quizPayload struct {
	ID        flexibleID        `json:"id"`
	Title     string            `json:"title"`
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	ID             flexibleID `json:"id"`
	Text           string     `json:"text"`
	Type           string     `json:"type"`
	Points         *int       `json:"points"`
	Options        []string   `json:"options"`
	CorrectAnswers []string   `json:"correctAnswers"`
}

func (p quizPayload) toDomain() domain.Quiz {
	quiz := domain.Quiz{ID: string(p.ID), Title: p.Title, Questions: make([]domain.Question, 0, len(p.Questions))}
	for _, q := range p.Questions {
		points := 1
		if q.Points != nil {
			points = *q.Points
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:             string(q.ID),
			Text:           q.Text,
			Type:           domain.QuestionType(q.Type),
			Points:         points,
			Options:        q.Options,
			CorrectAnswers: q.CorrectAnswers,
		})
	}
	return quiz
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}
