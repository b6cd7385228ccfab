package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quiz-grading-service/internal/analytics"
	"quiz-grading-service/internal/notify"
)

// RouterConfig lists the collaborators of the API router. Analytics is optional.
type RouterConfig struct {
	Logger         *log.Logger
	Submissions    Submissions
	Hub            *notify.Hub
	Analytics      *analytics.Service
	AllowedOrigins []string
}

// NewRouter builds the public API.
func NewRouter(cfg RouterConfig) http.Handler {
	router := newBaseRouter(cfg.AllowedOrigins)

	submissions := NewSubmissionHandler(cfg.Submissions, cfg.Logger)
	router.Route("/submissions", submissions.Register)

	router.Get("/ws", NewWSHandler(cfg.Hub, cfg.Logger).ServeWS)
	router.Method(http.MethodPost, "/notifications/send", NewNotificationHandler(cfg.Hub, cfg.Logger))

	if cfg.Analytics != nil {
		router.Route("/analytics", NewAnalyticsHandler(cfg.Analytics, cfg.Logger).Register)
	}
	return router
}

// NewGraderRouter builds the standalone grading engine API.
func NewGraderRouter(grader Grader, logger *log.Logger) http.Handler {
	router := newBaseRouter([]string{"*"})
	router.Method(http.MethodPost, "/grade", NewGradingHandler(grader, logger))
	return router
}

func newBaseRouter(origins []string) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(origins))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return router
}
