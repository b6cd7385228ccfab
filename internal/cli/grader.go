package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quiz-grading-service/internal/config"
	"quiz-grading-service/internal/grading"
	transport "quiz-grading-service/internal/transport/http"
)

// NewGraderCmd runs the grading engine as a standalone HTTP service (POST /grade).
func NewGraderCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "grader",
		Short: "Start the standalone grading engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrader(cmd.Context(), *configPath, *port)
		},
	}
}

func runGrader(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	engine := grading.NewEngine(b.quizCache(cfg, newLogger("quiz-cache")))
	return serveHTTP(ctx, ":"+listenPort(portFlag, cfg), transport.NewGraderRouter(engine, newLogger("grader")))
}
