package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
)

// PubSub carries notifications over a Redis PUBLISH/SUBSCRIBE channel.
// Subscribers that are not connected when a message is published never see it.
type PubSub struct {
	client  *redis.Client
	channel string
}

func NewPubSub(client *redis.Client, channel string) *PubSub {
	if channel == "" {
		channel = "notifications"
	}
	return &PubSub{client: client, channel: channel}
}

func (p *PubSub) Publish(ctx context.Context, n domain.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server.
// The caller must invoke the returned cancel function to avoid leaks.
func (p *PubSub) Subscribe(ctx context.Context) (<-chan domain.Notification, func(), error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	out := make(chan domain.Notification, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- decodeNotification(msg.Payload):
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

// decodeNotification never fails: a payload that is not a JSON object is
// wrapped into an untyped notification so it is still routed.
func decodeNotification(payload string) domain.Notification {
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return domain.Notification{Payload: map[string]any{"raw": payload}}
	}
	return n
}
