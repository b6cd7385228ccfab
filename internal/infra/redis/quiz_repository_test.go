package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr := startRedis(t)
	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute, nil)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:quiz-1")
	}
	if ttl := mr.TTL("quiz:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if len(cached.Questions) != len(quiz.Questions) || cached.Questions[1].CorrectAnswers[1] != "C" {
		t.Fatalf("cached quiz differs: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls.Load())
	}
}

func TestQuizRepositoryMissingQuiz(t *testing.T) {
	mr := startRedis(t)
	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute, nil)

	if _, err := repo.GetQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if mr.Exists("quiz:nope") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func TestQuizRepositoryInvalidateDuringLoadWins(t *testing.T) {
	ctx := context.Background()
	mr := startRedis(t)

	loader := newGatedLoader(sampleQuiz())
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = repo.GetQuiz(ctx, "quiz-1")
	}()
	<-loader.entered

	updated := sampleQuiz()
	updated.Questions[0].CorrectAnswers = []string{"Z"}
	loader.set(updated)
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	<-done

	got, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Questions[0].CorrectAnswers[0] != "Z" {
		t.Fatalf("expected the updated answer key, got %v", got.Questions[0].CorrectAnswers)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected a reload after the invalidation, loader calls %d", loader.calls.Load())
	}
}

// gatedLoader reads its quiz, then holds the first load until release is closed.
type gatedLoader struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32

	mu   sync.Mutex
	quiz domain.Quiz
}

func newGatedLoader(quiz domain.Quiz) *gatedLoader {
	return &gatedLoader{entered: make(chan struct{}), release: make(chan struct{}), quiz: quiz}
}

func (l *gatedLoader) set(quiz domain.Quiz) {
	l.mu.Lock()
	l.quiz = quiz
	l.mu.Unlock()
}

func (l *gatedLoader) LoadQuiz(_ context.Context, _ string) (domain.Quiz, error) {
	l.mu.Lock()
	quiz := l.quiz
	l.mu.Unlock()
	if l.calls.Add(1) == 1 {
		close(l.entered)
		<-l.release
	}
	return quiz, nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Type: domain.QuestionMultipleChoice, Points: 1, Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}},
			{ID: "q2", Text: "Pick a letter after A", Type: domain.QuestionMultipleChoice, Points: 2, CorrectAnswers: []string{"B", "C"}},
		},
	}
}

func startRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
