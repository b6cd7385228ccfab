package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-grading-service/internal/domain"
)

// Submissions is what the submission endpoints need from the service layer.
type Submissions interface {
	Start(ctx context.Context, quizID, userID string) (domain.Submission, error)
	Submit(ctx context.Context, id string, answers map[string]string) (domain.Submission, error)
	Grade(ctx context.Context, id string) (domain.Submission, error)
	Get(ctx context.Context, id string) (domain.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
}

type SubmissionHandler struct {
	responder
	service Submissions
}

func NewSubmissionHandler(service Submissions, logger *log.Logger) *SubmissionHandler {
	return &SubmissionHandler{responder: newResponder(logger), service: service}
}

// Register mounts the handler on a router scoped to /submissions.
func (h *SubmissionHandler) Register(r chi.Router) {
	r.Post("/start", h.start)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/grade", h.grade)
	r.Get("/user/{userId}", h.listByUser)
	r.Get("/quiz/{quizId}", h.listByQuiz)
	r.Get("/{id}", h.get)
}

func (h *SubmissionHandler) start(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing quizId or userId"})
		return
	}
	sub, err := h.service.Start(r.Context(), quizID, userID)
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	answers := map[string]string{}
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, fmt.Errorf("decode answers: %v: %w", err, domain.ErrInvalidAnswers), http.StatusBadRequest)
		return
	}
	sub, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), answers)
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

// grade reports grader failures other than a missing quiz as 502.
func (h *SubmissionHandler) grade(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Grade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) listByUser(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) listByQuiz(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListByQuiz(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}
