package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-grading-service/internal/analytics"
	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/config"
	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/grading"
	"quiz-grading-service/internal/notify"
	transport "quiz-grading-service/internal/transport/http"
	"quiz-grading-service/internal/worker"
)

// Consumer group that keeps the quiz cache in step with quiz changes.
const quizCacheGroup = "quiz-cache"

// NewStartCmd builds the CLI subcommand to start the API, the grading workers and the fan-out.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the submission API with grading workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	gradeTimeout := config.Duration(cfg.Grading.Timeout, 5*time.Second)
	quizzes := b.quizCache(cfg, newLogger("quiz-cache"))
	events := b.eventLog(newLogger("events"))
	queue := b.taskQueue(cfg, newLogger("queue"))
	bus := b.notificationBus(cfg)

	service := app.NewSubmissionService(b.submissions(), events, queue, bus, b.grader(cfg, quizzes), gradeTimeout, newLogger("submissions"))

	analyticsStore, err := b.analyticsStore(ctx, cfg)
	if err != nil {
		return err
	}
	hub := notify.NewHub(32)

	router := transport.NewRouter(transport.RouterConfig{
		Logger:         newLogger("http"),
		Submissions:    service,
		Hub:            hub,
		Analytics:      analytics.NewService(analyticsStore),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	dispatcher := worker.NewDispatcher(queue, service, cfg.Dispatcher.Workers, newLogger("dispatcher"))
	scheduler := worker.NewScheduler(service, config.Duration(cfg.Scheduler.Interval, 5*time.Second), cfg.Scheduler.Concurrency, newLogger("scheduler"))
	fanout := notify.NewFanOut(bus, hub, newLogger("fanout"))
	recorder := analytics.NewRecorder(analyticsStore, newLogger("analytics"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(ctx, ":"+listenPort(portFlag, cfg), router)
	})
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return fanout.Run(ctx) })
	g.Go(func() error {
		return events.Consume(ctx, analytics.Group, analytics.Topics, recorder.Handle)
	})
	g.Go(func() error {
		return events.Consume(ctx, quizCacheGroup, []string{domain.TopicQuizEvents}, grading.InvalidateOnQuizChange(quizzes, newLogger("quiz-cache")))
	})
	g.Go(func() error {
		return events.Consume(ctx, worker.SubmissionLogGroup, []string{domain.TopicSubmissionEvents}, worker.LogEvents(newLogger("submission-events")))
	})
	return g.Wait()
}

func listenPort(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Server.Port
}

// serveHTTP runs the server until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
