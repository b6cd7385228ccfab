package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quiz-grading-service/internal/analytics"
)

// EventStore keeps analytics records in insertion order.
type EventStore struct {
	mu      sync.RWMutex
	records []analytics.Record
	seq     int
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Save(_ context.Context, rec analytics.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if rec.ID == "" {
		rec.ID = strconv.Itoa(s.seq)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *EventStore) All(_ context.Context) ([]analytics.Record, error) {
	return s.filter(func(analytics.Record) bool { return true }), nil
}

func (s *EventStore) ByType(_ context.Context, eventType string) ([]analytics.Record, error) {
	return s.filter(func(r analytics.Record) bool { return r.EventType == eventType }), nil
}

func (s *EventStore) Between(_ context.Context, start, end time.Time) ([]analytics.Record, error) {
	return s.filter(func(r analytics.Record) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	}), nil
}

func (s *EventStore) CountByType(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, r := range s.records {
		counts[r.EventType]++
	}
	return counts, nil
}

func (s *EventStore) filter(match func(analytics.Record) bool) []analytics.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analytics.Record, 0)
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}
