package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/app"
	"github.com/romariotrain/streaming-platform/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidatePublisher()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: config: %v\n", err)
		os.Exit(2)
	}

	code := app.Run("publish", cfg.LogLevel, cfg.ShutdownWait, func(ctx context.Context, logger zerolog.Logger) error {
		return run(ctx, cfg, logger)
	})
	os.Exit(code)
}
