package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-grading-service/internal/domain"
)

const submissionColumns = `id, quiz_id, user_id, answers, score, max_score, status, started_at, submitted_at, graded_at`

// SubmissionStore persists submissions in Postgres. Transitions are single
// UPDATE statements guarded on the current status, so only one writer wins.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Create(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	answers, err := encodeAnswers(sub.Answers)
	if err != nil {
		return domain.Submission{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO submissions (id, quiz_id, user_id, answers, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+submissionColumns,
		sub.ID, sub.QuizID, sub.UserID, answers, string(sub.Status), sub.StartedAt)
	created, err := scanSubmission(row)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return created, nil
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SubmissionStore) MarkSubmitted(ctx context.Context, id string, answers map[string]string, at time.Time) (domain.Submission, error) {
	raw, err := encodeAnswers(answers)
	if err != nil {
		return domain.Submission{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE submissions
		SET answers=$2, status='SUBMITTED', submitted_at=$3
		WHERE id=$1 AND status='IN_PROGRESS'
		RETURNING `+submissionColumns, id, raw, at)
	sub, err := scanSubmission(row)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, fmt.Errorf("submit %s: %w", id, err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	return domain.Submission{}, fmt.Errorf("submit %s in status %s: %w", id, current.Status, domain.ErrInvalidTransition)
}

func (s *SubmissionStore) MarkGraded(ctx context.Context, id string, score, maxScore int, at time.Time) (domain.Submission, bool, error) {
	row := s.pool.QueryRow(ctx, `UPDATE submissions
		SET score=$2, max_score=$3, status='GRADED', graded_at=$4
		WHERE id=$1 AND status='SUBMITTED'
		RETURNING `+submissionColumns, id, score, maxScore, at)
	sub, err := scanSubmission(row)
	if err == nil {
		return sub, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, false, fmt.Errorf("grade %s: %w", id, err)
	}

	// The guard did not match: either another driver graded it first or the record is not ready.
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Submission{}, false, err
	}
	if current.Status == domain.StatusGraded {
		return current, false, nil
	}
	return domain.Submission{}, false, fmt.Errorf("grade %s in status %s: %w", id, current.Status, domain.ErrInvalidTransition)
}

func (s *SubmissionStore) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.list(ctx, `WHERE user_id=$1`, userID)
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.list(ctx, `WHERE quiz_id=$1`, quizID)
}

func (s *SubmissionStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Submission, error) {
	return s.list(ctx, `WHERE status=$1`, string(status))
}

func (s *SubmissionStore) list(ctx context.Context, where string, arg string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions `+where+` ORDER BY started_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var (
		sub     domain.Submission
		answers []byte
		status  string
	)
	err := row.Scan(&sub.ID, &sub.QuizID, &sub.UserID, &answers, &sub.Score, &sub.MaxScore, &status, &sub.StartedAt, &sub.SubmittedAt, &sub.GradedAt)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.Status = domain.Status(status)
	sub.Answers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &sub.Answers); err != nil {
			return domain.Submission{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return sub, nil
}

func encodeAnswers(answers map[string]string) ([]byte, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return raw, nil
}
