package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"quiz-grading-service/internal/notify"
)

// WSHandler streams hub topics to websocket clients.
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewWSHandler(hub *notify.Hub, logger *log.Logger) *WSHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	Topics []string `json:"topics"`
}

// ServeWS upgrades the request and forwards messages for the requested topics.
// A userId subscribes to that user's topic; topics is a comma-separated list.
// With neither, the client gets the general notifications topic.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topics := requestedTopics(r.URL.Query().Get("userId"), r.URL.Query().Get("topics"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	messages, cancel := h.hub.Subscribe(topics...)
	defer cancel()

	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer goroutine; gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		if err := conn.WriteJSON(outboundMessage[subscribedPayload]{Type: "subscribed", Payload: subscribedPayload{Topics: topics}}); err != nil {
			h.logger.Printf("ws write error: %v", err)
			return
		}
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				out := outboundMessage[any]{Type: "notification", Topic: msg.Topic, Payload: msg.Notification}
				if err := conn.WriteJSON(out); err != nil {
					h.logger.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Inbound frames are ignored; reading detects the client going away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-writerDone
}

func requestedTopics(userID, raw string) []string {
	seen := make(map[string]struct{})
	var topics []string
	add := func(topic string) {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	if userID != "" {
		add(notify.UserTopic(userID))
	}
	for _, topic := range strings.Split(raw, ",") {
		add(topic)
	}
	if len(topics) == 0 {
		add(notify.TopicNotifications)
	}
	return topics
}
