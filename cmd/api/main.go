package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/app"
	"github.com/romariotrain/streaming-platform/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAPI()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: config: %v\n", err)
		os.Exit(2)
	}

	code := app.Run("api", cfg.LogLevel, cfg.ShutdownWait+5*time.Second, func(ctx context.Context, logger zerolog.Logger) error {
		return run(ctx, cfg, logger)
	})
	os.Exit(code)
}
