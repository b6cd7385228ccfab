package grading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-grading-service/internal/domain"
)

func TestClientGrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/grade" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req domain.GradingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.QuizID != "quiz-1" || req.Answers["q1"] != "A" {
			t.Errorf("unexpected payload %+v", req)
		}
		_ = json.NewEncoder(w).Encode(domain.GradingResponse{SubmissionID: req.SubmissionID, Score: 1, MaxScore: 3})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second)
	resp, err := client.Grade(context.Background(), domain.GradingRequest{
		SubmissionID: "s1",
		QuizID:       "quiz-1",
		Answers:      map[string]string{"q1": "A"},
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if resp.SubmissionID != "s1" || resp.Score != 1 || resp.MaxScore != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quiz not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Grade(context.Background(), domain.GradingRequest{SubmissionID: "s1", QuizID: "missing"})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestClientTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, 50*time.Millisecond).Grade(context.Background(), domain.GradingRequest{SubmissionID: "s1", QuizID: "quiz-1"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("timeout must not be reported as not found: %v", err)
	}
}

func TestEngineReportsMissingQuiz(t *testing.T) {
	engine := NewEngine(staticQuizzes{"quiz-1": twoQuestionQuiz()})

	resp, err := engine.Grade(context.Background(), domain.GradingRequest{SubmissionID: "s1", QuizID: "quiz-1", Answers: map[string]string{"q1": "A", "q2": "C"}})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if resp.Score != 3 || resp.MaxScore != 3 || resp.SubmissionID != "s1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if _, err := engine.Grade(context.Background(), domain.GradingRequest{SubmissionID: "s2", QuizID: "nope"}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestInvalidateOnQuizChange(t *testing.T) {
	cache := &recordingInvalidator{}
	handle := InvalidateOnQuizChange(cache, nil)

	events := []domain.Event{
		{Type: domain.EventQuizCreated, Fields: map[string]any{"quizId": "q-created"}},
		{Type: domain.EventQuizUpdated, Fields: map[string]any{"quizId": "q-updated"}},
		{Type: domain.EventQuizDeleted, Fields: map[string]any{"quizId": float64(7)}},
		{Type: domain.EventQuizDeleted},
	}
	for _, ev := range events {
		if err := handle(context.Background(), domain.TopicQuizEvents, ev); err != nil {
			t.Fatalf("handle %s: %v", ev.Type, err)
		}
	}
	if len(cache.ids) != 2 || cache.ids[0] != "q-updated" || cache.ids[1] != "7" {
		t.Fatalf("unexpected invalidations %v", cache.ids)
	}
}

type staticQuizzes map[string]domain.Quiz

func (s staticQuizzes) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := s[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, quizID string) error {
	r.ids = append(r.ids, quizID)
	return nil
}
