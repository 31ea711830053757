package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/config"
	"github.com/romariotrain/streaming-platform/internal/movie/httpapi"
	"github.com/romariotrain/streaming-platform/internal/movie/progress"
	"github.com/romariotrain/streaming-platform/internal/movie/service"
	"github.com/romariotrain/streaming-platform/internal/storage/blob"
	pg "github.com/romariotrain/streaming-platform/internal/storage/postgres"
	"github.com/romariotrain/streaming-platform/internal/videohost/bunny"
)

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	db, err := pg.Connect(ctx, cfg.DatabaseURL, pg.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if err := pg.Migrate(ctx, db); err != nil {
		return err
	}

	host, err := bunny.New(bunny.Config{
		BaseURL:     cfg.VideoHostBaseURL,
		TUSEndpoint: cfg.VideoHostTUSEndpoint,
		LibraryID:   cfg.VideoHostLibraryID,
		APIKey:      cfg.VideoHostAPIKey,
		RPS:         cfg.VideoHostRPS,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("video host: %w", err)
	}

	thumbnails, err := thumbnailStore(ctx, cfg)
	if err != nil {
		return err
	}

	var tracker progress.Tracker = progress.NewMemoryTracker()
	if cfg.RedisURL != "" {
		rdb, err := progress.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		tracker = progress.NewRedisTracker(rdb, progress.DefaultTTL)
	} else {
		logger.Warn().Msg("REDIS_URL is empty, upload progress is kept in process memory")
	}

	// Dependencies
	outbox := pg.NewOutboxRepo(db)
	svc := service.New(service.Deps{
		Movies:         pg.NewMovieRepo(db, outbox),
		Categories:     pg.NewCategoryRepo(db),
		Favourites:     pg.NewFavouriteRepo(db),
		Host:           host,
		Thumbnails:     thumbnails,
		Progress:       tracker,
		Logger:         logger,
		CredentialsTTL: cfg.CredentialsTTL,
	})
	h := httpapi.New(svc, logger, cfg.MaxUploadMB<<20)

	rc := httpapi.RouterConfig{
		Auth:   httpapi.NewAuthenticator(cfg.JWTSecret),
		Logger: logger,
	}
	if cfg.ThumbnailStore == "local" {
		rc.StaticPrefix, rc.StaticDir = cfg.ThumbnailBaseURL, cfg.ThumbnailDir
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, rc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}

func thumbnailStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.ThumbnailStore == "s3" {
		s, err := blob.NewS3Store(ctx, cfg.ThumbnailBucket, cfg.ThumbnailBaseURL)
		if err != nil {
			return nil, fmt.Errorf("thumbnail store: %w", err)
		}
		return s, nil
	}
	s, err := blob.NewLocalStore(cfg.ThumbnailDir, cfg.ThumbnailBaseURL)
	if err != nil {
		return nil, fmt.Errorf("thumbnail store: %w", err)
	}
	return s, nil
}
