package notify

import (
	"context"
	"fmt"
	"log"

	"quiz-grading-service/internal/domain"
)

// Source is the inbound notification channel.
type Source interface {
	Subscribe(ctx context.Context) (<-chan domain.Notification, func(), error)
}

// FanOut republishes every inbound notification to its routed topics.
type FanOut struct {
	source Source
	hub    *Hub
	logger *log.Logger
}

func NewFanOut(source Source, hub *Hub, logger *log.Logger) *FanOut {
	if logger == nil {
		logger = log.Default()
	}
	return &FanOut{source: source, hub: hub, logger: logger}
}

// Run consumes the inbound channel until ctx is cancelled or the source closes.
func (f *FanOut) Run(ctx context.Context) error {
	inbound, cancel, err := f.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to notifications: %w", err)
	}
	defer cancel()
	f.logger.Printf("notification fan-out started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-inbound:
			if !ok {
				return nil
			}
			f.Dispatch(n)
		}
	}
}

// Dispatch routes a single notification.
func (f *FanOut) Dispatch(n domain.Notification) {
	for _, topic := range Route(n) {
		f.hub.Deliver(topic, n)
	}
}
