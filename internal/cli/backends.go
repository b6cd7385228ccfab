package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-grading-service/internal/analytics"
	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/config"
	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/grading"
	"quiz-grading-service/internal/infra/memory"
	mongostore "quiz-grading-service/internal/infra/mongo"
	pgstore "quiz-grading-service/internal/infra/postgres"
	redisstore "quiz-grading-service/internal/infra/redis"
	"quiz-grading-service/internal/infra/remote"
	"quiz-grading-service/internal/notify"
	"quiz-grading-service/internal/worker"
)

type eventLog interface {
	app.EventPublisher
	Consume(ctx context.Context, group string, topics []string, handle func(ctx context.Context, topic string, ev domain.Event) error) error
}

type taskQueue interface {
	app.TaskQueue
	worker.TaskSource
}

type notificationBus interface {
	app.NotificationPublisher
	notify.Source
}

type quizCache interface {
	grading.QuizRepository
	grading.QuizInvalidator
}

// backends holds the external connections selected by config; nil means in-memory.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	mongo *mongo.Client
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	if cfg.Mongo.URI != "" {
		opts := options.Client().ApplyURI(cfg.Mongo.URI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.mongo = client
		if err := client.Ping(ctx, nil); err != nil {
			b.close()
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
	}
	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.mongo.Disconnect(ctx); err != nil {
			log.Printf("disconnect mongo: %v", err)
		}
	}
}

func (b *backends) quizLoader(cfg config.Config) memory.QuizLoader {
	switch {
	case cfg.Quiz.URL != "":
		return remote.NewQuizLoader(cfg.Quiz.URL, config.Duration(cfg.Quiz.Timeout, 5*time.Second))
	case b.pool != nil:
		return pgstore.NewQuizLoader(b.pool)
	default:
		return memory.NewStaticQuizLoader(sampleQuizzes())
	}
}

func (b *backends) quizCache(cfg config.Config, logger *log.Logger) quizCache {
	ttl := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisstore.NewQuizRepository(b.redis, b.quizLoader(cfg), ttl, logger)
	}
	return memory.NewQuizRepository(b.quizLoader(cfg), ttl)
}

// grader prefers a remote grading service when one is configured.
func (b *backends) grader(cfg config.Config, quizzes grading.QuizRepository) app.Grader {
	if cfg.Grading.URL != "" {
		return grading.NewClient(cfg.Grading.URL, config.Duration(cfg.Grading.Timeout, 5*time.Second))
	}
	return grading.NewEngine(quizzes)
}

func (b *backends) submissions() app.SubmissionRepository {
	switch {
	case b.pool != nil:
		return pgstore.NewSubmissionStore(b.pool)
	case b.redis != nil:
		return redisstore.NewSubmissionStore(b.redis)
	default:
		return memory.NewSubmissionStore()
	}
}

func (b *backends) eventLog(logger *log.Logger) eventLog {
	if b.redis != nil {
		return redisstore.NewEventLog(b.redis, logger)
	}
	return memory.NewEventLog(logger)
}

func (b *backends) taskQueue(cfg config.Config, logger *log.Logger) taskQueue {
	if b.redis != nil {
		return redisstore.NewWorkQueue(b.redis, cfg.Dispatcher.Queue, logger)
	}
	return memory.NewWorkQueue(0)
}

func (b *backends) notificationBus(cfg config.Config) notificationBus {
	if b.redis != nil {
		return redisstore.NewPubSub(b.redis, cfg.Notifications.Channel)
	}
	return memory.NewPubSub()
}

func (b *backends) analyticsStore(ctx context.Context, cfg config.Config) (analytics.Store, error) {
	if b.mongo == nil {
		return memory.NewEventStore(), nil
	}
	store := mongostore.NewEventStore(b.mongo.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newLogger(component string) *log.Logger {
	return log.New(log.Writer(), "["+component+"] ", log.LstdFlags)
}

// sampleQuizzes backs the in-memory quiz loader when no quiz source is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"1": {
			ID:    "1",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{ID: "1", Text: "What is 2 + 2?", Type: domain.QuestionMultipleChoice, Points: 1, Options: []string{"3", "4", "5"}, CorrectAnswers: []string{"4"}},
				{ID: "2", Text: "Which of these are even?", Type: domain.QuestionMultipleChoice, Points: 2, Options: []string{"7", "8", "10"}, CorrectAnswers: []string{"8", "10"}},
				{ID: "3", Text: "Explain carrying in addition.", Type: "SHORT_ANSWER", Points: 3},
			},
		},
	}
}
