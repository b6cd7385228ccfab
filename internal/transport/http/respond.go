package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"quiz-grading-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type responder struct {
	logger *log.Logger
}

func newResponder(logger *log.Logger) responder {
	if logger == nil {
		logger = log.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.logger.Printf("encode response: %v", err)
	}
}

// writeError maps domain errors to status codes; anything unrecognised gets fallback.
func (r responder) writeError(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		r.logger.Printf("request failed: %v", err)
	}
	r.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, domain.ErrSubmissionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAnswers):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

// withCORS adds CORS headers for the allowed origins ("*" allows any).
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			_, ok := allowed[origin]
			if origin == "" || (!allowAll && !ok) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
