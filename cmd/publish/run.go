package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/romariotrain/streaming-platform/internal/config"
	"github.com/romariotrain/streaming-platform/internal/movie/kafka"
	"github.com/romariotrain/streaming-platform/internal/movie/outbox"
	pg "github.com/romariotrain/streaming-platform/internal/storage/postgres"
)

const statsInterval = time.Minute

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

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close kafka producer")
		}
	}()

	if err := producer.HealthCheck(ctx); err != nil {
		// брокер может подняться позже, паблишер повторит
		logger.Warn().Err(err).Msg("kafka is not reachable yet")
	}

	store := pg.NewOutboxRepo(db)
	publisher, err := outbox.NewPublisher(outbox.PublisherConfig{
		Store:       store,
		Producer:    producer,
		Interval:    cfg.OutboxInterval,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return publisher.Start(ctx) })
	g.Go(func() error { return maintain(ctx, store, producer, cfg.OutboxRetention, logger) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// maintain logs producer and backlog stats and trims published events.
func maintain(ctx context.Context, store *pg.OutboxRepo, p *kafka.Producer, retention time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		m := p.GetMetrics()
		ev := logger.Info().
			Int64("published", m.MessagesPublished).
			Int64("failed", m.MessagesFailed).
			Int64("retries", m.RetriesTotal).
			Dur("avg_publish", m.AvgPublishTime)
		if b, err := store.Backlog(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to read outbox backlog")
		} else {
			ev = ev.Int("pending", b.Pending).Int("parked", b.Parked)
			if b.Oldest != nil {
				ev = ev.Dur("oldest_pending_age", time.Since(*b.Oldest))
			}
		}
		ev.Msg("outbox stats")

		if retention <= 0 {
			continue
		}
		n, err := store.Purge(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to purge outbox")
			continue
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("purged published events")
		}
	}
}
