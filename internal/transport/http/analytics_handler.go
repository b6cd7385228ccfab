package http

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-grading-service/internal/analytics"
)

type AnalyticsHandler struct {
	responder
	service *analytics.Service
}

func NewAnalyticsHandler(service *analytics.Service, logger *log.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{responder: newResponder(logger), service: service}
}

// Register mounts the handler on a router scoped to /analytics.
func (h *AnalyticsHandler) Register(r chi.Router) {
	r.Get("/events", h.events)
	r.Get("/events/type/{eventType}", h.eventsByType)
	r.Get("/events/date-range", h.eventsByDateRange)
	r.Get("/dashboard", h.dashboard)
	r.Get("/quiz-stats", h.quizStats)
	r.Get("/user-stats", h.userStats)
}

func (h *AnalyticsHandler) events(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Events(r.Context())
	h.respond(w, records, err)
}

func (h *AnalyticsHandler) eventsByType(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.EventsByType(r.Context(), chi.URLParam(r, "eventType"))
	h.respond(w, records, err)
}

func (h *AnalyticsHandler) eventsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimestamp(r.URL.Query().Get("start"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid start: " + err.Error()})
		return
	}
	end, err := parseTimestamp(r.URL.Query().Get("end"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid end: " + err.Error()})
		return
	}
	records, err := h.service.EventsBetween(r.Context(), start, end)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *AnalyticsHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	h.respond(w, stats, err)
}

func (h *AnalyticsHandler) quizStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.QuizStats(r.Context())
	h.respond(w, stats, err)
}

func (h *AnalyticsHandler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.UserStats(r.Context())
	h.respond(w, stats, err)
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// parseTimestamp accepts RFC 3339 or a zone-less ISO date-time, read as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing value")
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
}
