package memory

import (
	"context"
	"sync"

	"quiz-grading-service/internal/domain"
)

// PubSub is an in-process notification channel. Publishing never blocks:
// a subscriber with a full buffer misses the message.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Notification]struct{}
}

func NewPubSub() *PubSub {
	return &PubSub{subscribers: make(map[chan domain.Notification]struct{})}
}

func (p *PubSub) Publish(_ context.Context, n domain.Notification) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for ch := range p.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of notifications published from now on.
// The caller must invoke the returned cancel function to avoid leaks.
func (p *PubSub) Subscribe(_ context.Context) (<-chan domain.Notification, func(), error) {
	ch := make(chan domain.Notification, 64)
	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel, nil
}
