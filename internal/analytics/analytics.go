package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"quiz-grading-service/internal/domain"
)

// Group is the consumer group the recorder reads the event log as.
const Group = "analytics-group"

// Topics are the event log topics the recorder follows.
var Topics = []string{domain.TopicUserEvents, domain.TopicQuizEvents, domain.TopicSubmissionEvents}

// Record is one stored event. Data holds the full flattened event, eventType included.
type Record struct {
	ID        string         `json:"id" bson:"_id,omitempty"`
	EventType string         `json:"eventType" bson:"eventType"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Data      map[string]any `json:"data" bson:"data"`
}

// Store persists analytics records (in-memory, MongoDB).
type Store interface {
	Save(ctx context.Context, rec Record) error
	All(ctx context.Context) ([]Record, error)
	ByType(ctx context.Context, eventType string) ([]Record, error)
	Between(ctx context.Context, start, end time.Time) ([]Record, error)
	CountByType(ctx context.Context) (map[string]int64, error)
}

// Recorder stores every event it is handed.
type Recorder struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

func NewRecorder(store Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Handle is an event log handler.
func (r *Recorder) Handle(ctx context.Context, _ string, ev domain.Event) error {
	data := make(map[string]any, len(ev.Fields)+1)
	for k, v := range ev.Fields {
		data[k] = v
	}
	data["eventType"] = ev.Type

	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = r.now()
	}
	if err := r.store.Save(ctx, Record{EventType: ev.Type, Timestamp: ts.UTC(), Data: data}); err != nil {
		return fmt.Errorf("store analytics event %s: %w", ev.Type, err)
	}
	r.logger.Printf("stored analytics event: %s", ev.Type)
	return nil
}

type Dashboard struct {
	TotalEvents int64            `json:"totalEvents"`
	EventCounts map[string]int64 `json:"eventCounts"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type QuizStats struct {
	TotalQuizzes     int64 `json:"totalQuizzes"`
	TotalSubmissions int64 `json:"totalSubmissions"`
}

type UserStats struct {
	TotalUsers  int64 `json:"totalUsers"`
	TotalLogins int64 `json:"totalLogins"`
}

// Service answers analytics queries.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Events(ctx context.Context) ([]Record, error) {
	return s.store.All(ctx)
}

func (s *Service) EventsByType(ctx context.Context, eventType string) ([]Record, error) {
	return s.store.ByType(ctx, eventType)
}

// EventsBetween returns records with start <= timestamp <= end.
func (s *Service) EventsBetween(ctx context.Context, start, end time.Time) ([]Record, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return s.store.Between(ctx, start, end)
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	counts, err := s.store.CountByType(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return Dashboard{TotalEvents: total, EventCounts: counts, LastUpdated: s.now()}, nil
}

func (s *Service) QuizStats(ctx context.Context) (QuizStats, error) {
	counts, err := s.store.CountByType(ctx)
	if err != nil {
		return QuizStats{}, err
	}
	return QuizStats{
		TotalQuizzes:     counts[domain.EventQuizCreated],
		TotalSubmissions: counts[domain.EventSubmissionSubmitted],
	}, nil
}

func (s *Service) UserStats(ctx context.Context) (UserStats, error) {
	counts, err := s.store.CountByType(ctx)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{
		TotalUsers:  counts[domain.EventUserRegistered],
		TotalLogins: counts[domain.EventUserLoggedIn],
	}, nil
}
