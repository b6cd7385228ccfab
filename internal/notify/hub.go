package notify

import (
	"sync"

	"quiz-grading-service/internal/domain"
)

// Message is a notification as delivered on one topic.
type Message struct {
	Topic        string              `json:"topic"`
	Notification domain.Notification `json:"notification"`
}

// Hub delivers messages to whoever is subscribed to a topic right now.
// Nothing is retained for absent subscribers.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[chan Message]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{topics: make(map[string]map[chan Message]struct{}), buffer: buffer}
}

// Subscribe registers one channel for all the given topics.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(topics ...string) (<-chan Message, func()) {
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	for _, topic := range topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[chan Message]struct{})
			h.topics[topic] = subs
		}
		subs[ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			for _, topic := range topics {
				if subs, ok := h.topics[topic]; ok {
					delete(subs, ch)
					if len(subs) == 0 {
						delete(h.topics, topic)
					}
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Deliver sends n to every subscriber of topic and reports how many received it.
// A subscriber whose buffer is full loses its oldest pending message.
func (h *Hub) Deliver(topic string, n domain.Notification) int {
	msg := Message{Topic: topic, Notification: n}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[topic]
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
	return len(subs)
}

// Subscribers reports how many channels currently listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}
