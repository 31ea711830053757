package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context, logger zerolog.Logger) error

// NewLogger builds the root logger every component derives from.
func NewLogger(w io.Writer, serviceName string, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Run executes run until it returns or the process gets SIGINT/SIGTERM.
// On a signal the runner's context is cancelled and Run waits for it to
// finish, at most grace.
func Run(serviceName string, level zerolog.Level, grace time.Duration, run Runner) int {
	logger := NewLogger(os.Stdout, serviceName, level)
	logger.Info().Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return wait(ctx, logger, grace, run)
}

func wait(ctx context.Context, logger zerolog.Logger, grace time.Duration, run Runner) int {
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, logger) }()

	select {
	case err := <-errCh:
		return exitCode(logger, err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	select {
	case err := <-errCh:
		return exitCode(logger, err)
	case <-time.After(grace):
		logger.Warn().Dur("grace", grace).Msg("runner did not stop in time")
		return 1
	}
}

func exitCode(logger zerolog.Logger, err error) int {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("failed")
		return 1
	}
	logger.Info().Msg("stopped")
	return 0
}
