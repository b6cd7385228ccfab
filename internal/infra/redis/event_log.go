package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
)

// DefaultStreamMaxLen caps each topic stream; XADD trims approximately to it.
const DefaultStreamMaxLen = 10000

// EventLog stores events in Redis Streams, one stream per topic.
// Consumer groups get at-least-once delivery; every message is acknowledged
// after its handler runs, whether or not the handler succeeded.
type EventLog struct {
	client  *redis.Client
	maxLen  int64
	block   time.Duration
	backoff time.Duration
	logger  *log.Logger
}

func NewEventLog(client *redis.Client, logger *log.Logger) *EventLog {
	if logger == nil {
		logger = log.Default()
	}
	return &EventLog{client: client, maxLen: DefaultStreamMaxLen, block: 2 * time.Second, backoff: time.Second, logger: logger}
}

func (l *EventLog) Publish(ctx context.Context, topic string, ev domain.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: l.maxLen,
		Approx: true,
		Values: map[string]interface{}{"eventType": ev.Type, "data": string(raw)},
	}).Err()
	if err != nil {
		return fmt.Errorf("append %s event to %s: %w", ev.Type, topic, err)
	}
	return nil
}

// Consume reads topics as a member of group until ctx is cancelled.
func (l *EventLog) Consume(ctx context.Context, group string, topics []string, handle func(ctx context.Context, topic string, ev domain.Event) error) error {
	for _, topic := range topics {
		err := l.client.XGroupCreateMkStream(ctx, topic, group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", group, topic, err)
		}
	}

	consumer := group + "-" + uuid.NewString()
	streams := make([]string, 0, len(topics)*2)
	streams = append(streams, topics...)
	for range topics {
		streams = append(streams, ">")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  streams,
			Count:    32,
			Block:    l.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Printf("event log: group %s: read: %v", group, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.backoff):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				ev := decodeEvent(msg.Values)
				if err := handle(ctx, stream.Stream, ev); err != nil {
					l.logger.Printf("event log: group %s: handle %s from %s: %v", group, ev.Type, stream.Stream, err)
				}
				if err := l.client.XAck(ctx, stream.Stream, group, msg.ID).Err(); err != nil {
					l.logger.Printf("event log: group %s: ack %s: %v", group, msg.ID, err)
				}
			}
		}
	}
}

func decodeEvent(values map[string]interface{}) domain.Event {
	var ev domain.Event
	if raw, ok := values["data"].(string); ok {
		if err := json.Unmarshal([]byte(raw), &ev); err == nil {
			return ev
		}
	}
	ev.Type, _ = values["eventType"].(string)
	ev.Fields = map[string]any{}
	return ev
}
