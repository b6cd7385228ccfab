package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/notify"
)

// NotificationHandler pushes a notification straight to one hub topic.
type NotificationHandler struct {
	responder
	hub *notify.Hub
}

func NewNotificationHandler(hub *notify.Hub, logger *log.Logger) *NotificationHandler {
	return &NotificationHandler{responder: newResponder(logger), hub: hub}
}

type sendResult struct {
	Topic     string `json:"topic"`
	Delivered int    `json:"delivered"`
}

// ServeHTTP handles POST /notifications/send. The body is a notification
// object with an optional "topic" field, which defaults to notifications.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid notification"})
		return
	}
	topic, _ := n.Payload["topic"].(string)
	delete(n.Payload, "topic")
	if topic == "" {
		topic = notify.TopicNotifications
	}

	delivered := h.hub.Deliver(topic, n)
	h.writeJSON(w, http.StatusAccepted, sendResult{Topic: topic, Delivered: delivered})
}
