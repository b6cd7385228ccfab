package memory

import (
	"context"
	"log"
	"sync"

	"quiz-grading-service/internal/domain"
)

const (
	// DefaultEventLogMaxLen bounds each topic even when no group has read it.
	DefaultEventLogMaxLen = 10000
	// DefaultEventLogRetain is how many read events stay around for groups
	// that join late.
	DefaultEventLogRetain = 1024
)

// EventLog is a per-topic in-process log. Each consumer group keeps its own
// offset, so every group sees every event once. Events every known group has
// read are trimmed down to the latest retain; a topic nobody consumes keeps
// its latest maxLen events.
type EventLog struct {
	mu      sync.Mutex
	topics  map[string]*topicLog
	offsets map[string]map[string]int // topic -> group -> absolute offset
	maxLen  int
	retain  int
	wake    chan struct{}
	logger  *log.Logger
}

// topicLog holds events[i] at absolute offset base+i.
type topicLog struct {
	base   int
	events []domain.Event
}

func NewEventLog(logger *log.Logger) *EventLog {
	if logger == nil {
		logger = log.Default()
	}
	return &EventLog{
		topics:  make(map[string]*topicLog),
		offsets: make(map[string]map[string]int),
		maxLen:  DefaultEventLogMaxLen,
		retain:  DefaultEventLogRetain,
		wake:    make(chan struct{}),
		logger:  logger,
	}
}

func (l *EventLog) Publish(_ context.Context, topic string, ev domain.Event) error {
	l.mu.Lock()
	t := l.topic(topic)
	t.events = append(t.events, ev)
	if over := len(t.events) - l.maxLen; l.maxLen > 0 && over > 0 {
		t.drop(over)
	}
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()
	return nil
}

// Events returns a copy of the events still retained for topic.
func (l *EventLog) Events(topic string) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.topics[topic]
	if !ok {
		return []domain.Event{}
	}
	out := make([]domain.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Consume delivers events from topics to handle until ctx is done. Handler
// errors are logged; the event is not redelivered. A group joining a topic
// starts from the oldest retained event.
func (l *EventLog) Consume(ctx context.Context, group string, topics []string, handle func(ctx context.Context, topic string, ev domain.Event) error) error {
	type delivery struct {
		topic string
		ev    domain.Event
	}

	l.mu.Lock()
	for _, topic := range topics {
		groups := l.groups(topic)
		if _, ok := groups[group]; !ok {
			groups[group] = l.topic(topic).base
		}
	}
	l.mu.Unlock()

	for {
		l.mu.Lock()
		var batch []delivery
		for _, topic := range topics {
			t := l.topic(topic)
			groups := l.groups(topic)
			from := groups[group] - t.base
			if from < 0 {
				from = 0
			}
			for _, ev := range t.events[from:] {
				batch = append(batch, delivery{topic: topic, ev: ev})
			}
			groups[group] = t.base + len(t.events)
			l.trim(topic)
		}
		wake := l.wake
		l.mu.Unlock()

		for _, d := range batch {
			if err := handle(ctx, d.topic, d.ev); err != nil {
				l.logger.Printf("event log: group %s: handle %s from %s: %v", group, d.ev.Type, d.topic, err)
			}
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		}
	}
}

// trim drops events every group registered on topic has already read,
// keeping the latest retain of them. Callers hold l.mu.
func (l *EventLog) trim(topic string) {
	t := l.topic(topic)
	groups := l.groups(topic)
	if len(groups) == 0 {
		return
	}
	lowest := -1
	for _, offset := range groups {
		if lowest < 0 || offset < lowest {
			lowest = offset
		}
	}
	n := lowest - t.base
	if keep := len(t.events) - l.retain; n > keep {
		n = keep
	}
	if n > 0 {
		t.drop(n)
	}
}

func (l *EventLog) topic(name string) *topicLog {
	t, ok := l.topics[name]
	if !ok {
		t = &topicLog{}
		l.topics[name] = t
	}
	return t
}

func (l *EventLog) groups(topic string) map[string]int {
	g, ok := l.offsets[topic]
	if !ok {
		g = make(map[string]int)
		l.offsets[topic] = g
	}
	return g
}

func (t *topicLog) drop(n int) {
	if n > len(t.events) {
		n = len(t.events)
	}
	rest := make([]domain.Event, len(t.events)-n)
	copy(rest, t.events[n:])
	t.events = rest
	t.base += n
}
