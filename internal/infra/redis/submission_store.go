package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
)

const maxTxRetries = 8

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SubmissionStore keeps submissions as JSON documents in Redis with set
// indexes per user, quiz and status. Transitions run under WATCH so a
// concurrent writer aborts the transaction instead of overwriting it.
//
//	submission:{id}                    JSON document
//	submissions:user:{userID}          set of ids
//	submissions:quiz:{quizID}          set of ids
//	submissions:status:{status}        set of ids
type SubmissionStore struct {
	client *redis.Client
}

func NewSubmissionStore(client *redis.Client) *SubmissionStore {
	return &SubmissionStore{client: client}
}

var errSubmissionExists = errors.New("submission already exists")

// Create writes the document and its indexes in one MULTI under WATCH. A
// failed write is rolled back so no unindexed document is left behind.
func (s *SubmissionStore) Create(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	raw, err := json.Marshal(sub)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("encode submission: %w", err)
	}
	key := s.key(sub.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errSubmissionExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.SAdd(ctx, s.userKey(sub.UserID), sub.ID)
			pipe.SAdd(ctx, s.quizKey(sub.QuizID), sub.ID)
			pipe.SAdd(ctx, s.statusKey(sub.Status), sub.ID)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, errSubmissionExists), errors.Is(err, redis.TxFailedErr):
		return domain.Submission{}, fmt.Errorf("submission %s: %w", sub.ID, errSubmissionExists)
	case err != nil:
		s.discard(ctx, sub)
		return domain.Submission{}, fmt.Errorf("store submission %s: %w", sub.ID, err)
	}
	return sub.Clone(), nil
}

// discard removes whatever part of a failed Create reached Redis.
func (s *SubmissionStore) discard(ctx context.Context, sub domain.Submission) {
	ctx = context.WithoutCancel(ctx)
	_, _ = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sub.ID))
		pipe.SRem(ctx, s.userKey(sub.UserID), sub.ID)
		pipe.SRem(ctx, s.quizKey(sub.QuizID), sub.ID)
		pipe.SRem(ctx, s.statusKey(sub.Status), sub.ID)
		return nil
	})
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (domain.Submission, error) {
	return s.load(ctx, s.client, id)
}

func (s *SubmissionStore) MarkSubmitted(ctx context.Context, id string, answers map[string]string, at time.Time) (domain.Submission, error) {
	sub, _, err := s.transition(ctx, id, func(sub *domain.Submission) (bool, error) {
		if sub.Status != domain.StatusInProgress {
			return false, fmt.Errorf("submit %s in status %s: %w", id, sub.Status, domain.ErrInvalidTransition)
		}
		sub.Answers = answers
		sub.Status = domain.StatusSubmitted
		submittedAt := at
		sub.SubmittedAt = &submittedAt
		return true, nil
	})
	return sub, err
}

func (s *SubmissionStore) MarkGraded(ctx context.Context, id string, score, maxScore int, at time.Time) (domain.Submission, bool, error) {
	return s.transition(ctx, id, func(sub *domain.Submission) (bool, error) {
		switch sub.Status {
		case domain.StatusGraded:
			return false, nil
		case domain.StatusSubmitted:
		default:
			return false, fmt.Errorf("grade %s in status %s: %w", id, sub.Status, domain.ErrInvalidTransition)
		}
		sub.Score = &score
		sub.MaxScore = &maxScore
		sub.Status = domain.StatusGraded
		gradedAt := at
		sub.GradedAt = &gradedAt
		return true, nil
	})
}

func (s *SubmissionStore) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.list(ctx, s.userKey(userID))
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.list(ctx, s.quizKey(quizID))
}

func (s *SubmissionStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Submission, error) {
	return s.list(ctx, s.statusKey(status))
}

// transition applies mutate under WATCH and retries when another writer got in first.
// mutate returns false to leave the record untouched.
func (s *SubmissionStore) transition(ctx context.Context, id string, mutate func(*domain.Submission) (bool, error)) (domain.Submission, bool, error) {
	key := s.key(id)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var (
			result  domain.Submission
			applied bool
		)
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			sub, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			from := sub.Status
			ok, err := mutate(&sub)
			if err != nil {
				return err
			}
			if !ok {
				result = sub
				return nil
			}

			raw, err := json.Marshal(sub)
			if err != nil {
				return fmt.Errorf("encode submission: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, raw, 0)
				pipe.SRem(ctx, s.statusKey(from), id)
				pipe.SAdd(ctx, s.statusKey(sub.Status), id)
				return nil
			})
			if err != nil {
				return err
			}
			result, applied = sub, true
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Submission{}, false, err
		}
		return result, applied, nil
	}
	return domain.Submission{}, false, fmt.Errorf("update submission %s: too much contention", id)
}

func (s *SubmissionStore) load(ctx context.Context, c getter, id string) (domain.Submission, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission %s: %w", id, err)
	}
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("decode submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SubmissionStore) list(ctx context.Context, indexKey string) ([]domain.Submission, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", indexKey, err)
	}
	out := make([]domain.Submission, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", indexKey, err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sub domain.Submission
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *SubmissionStore) key(id string) string {
	return "submission:" + id
}

func (s *SubmissionStore) userKey(userID string) string {
	return "submissions:user:" + userID
}

func (s *SubmissionStore) quizKey(quizID string) string {
	return "submissions:quiz:" + quizID
}

func (s *SubmissionStore) statusKey(status domain.Status) string {
	return "submissions:status:" + string(status)
}
