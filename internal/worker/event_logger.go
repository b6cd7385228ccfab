package worker

import (
	"context"
	"log"
	"sort"
	"strings"

	"quiz-grading-service/internal/domain"
)

// SubmissionLogGroup is the consumer group of the lifecycle logger.
const SubmissionLogGroup = "submission-log"

// LogEvents returns an event log handler that writes one line per event.
func LogEvents(logger *log.Logger) func(ctx context.Context, topic string, ev domain.Event) error {
	if logger == nil {
		logger = log.Default()
	}
	return func(_ context.Context, topic string, ev domain.Event) error {
		keys := make([]string, 0, len(ev.Fields))
		for k := range ev.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+ev.Field(k))
		}
		logger.Printf("%s %s %s", topic, ev.Type, strings.Join(parts, " "))
		return nil
	}
}
