package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"quiz-grading-service/internal/domain"
)

// Grader scores one grading request.
type Grader interface {
	Grade(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error)
}

// GradingHandler exposes a grader as POST /grade.
type GradingHandler struct {
	responder
	grader Grader
}

func NewGradingHandler(grader Grader, logger *log.Logger) *GradingHandler {
	return &GradingHandler{responder: newResponder(logger), grader: grader}
}

func (h *GradingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req domain.GradingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid grading request"})
		return
	}
	if req.QuizID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing quizId"})
		return
	}
	resp, err := h.grader.Grade(r.Context(), req)
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
