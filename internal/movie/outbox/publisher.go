package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/movie/kafka"
	"github.com/romariotrain/streaming-platform/internal/storage/postgres"
)

type Store interface {
	GetPending(ctx context.Context, limit int) ([]postgres.OutboxRecord, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
	Park(ctx context.Context, id int64, cause error) error
}

// DefaultMaxAttempts is how many failed publishes an event gets before it is
// parked.
const DefaultMaxAttempts = 10

type Producer interface {
	PublishMessage(ctx context.Context, msg kafka.Message) error
}

// Publisher drains the outbox table to Kafka. Delivery is at-least-once:
// an event published but not marked is sent again on the next tick, so
// consumers must dedupe on event_id.
//
// A transient failure stops the batch. An event the broker rejects holds
// back the later events of its movie only, and after maxAttempts it is
// parked so its movie moves on.
type Publisher struct {
	store       Store
	producer    Producer
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      zerolog.Logger
}

// PublisherConfig.MaxAttempts defaults to DefaultMaxAttempts when zero.
type PublisherConfig struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Logger      zerolog.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if cfg.Producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got: %v", cfg.Interval)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got: %d", cfg.BatchSize)
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts cannot be negative, got: %d", cfg.MaxAttempts)
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Publisher{
		store:       cfg.Store,
		producer:    cfg.Producer,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger.With().Str("component", "outbox_publisher").Logger(),
	}, nil
}

// Start polls until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.interval).
		Int("batch_size", p.batchSize).
		Int("max_attempts", p.maxAttempts).
		Msg("outbox publisher started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Err(ctx.Err()).Msg("outbox publisher stopped")
			return ctx.Err()

		case <-ticker.C:
			if _, err := p.publishBatch(ctx); err != nil {
				// не падаем, следующий тик повторит
				p.logger.Error().Err(err).Msg("failed to publish batch")
			}
		}
	}
}

// publishBatch handles one batch and returns how many events were marked.
func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	records, err := p.store.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending records: %w", err)
	}
	if len(records) == 0 {
		p.logger.Debug().Msg("no pending events to publish")
		return 0, nil
	}

	var published, failed, parked, marked int
	blocked := make(map[uuid.UUID]bool)
	for _, rec := range records {
		if blocked[rec.AggregateID] {
			continue
		}
		log := p.logger.With().
			Str("event_id", rec.EventID.String()).
			Str("event_type", rec.EventType).
			Str("movie_id", rec.AggregateID.String()).
			Int64("outbox_id", rec.ID).
			Logger()

		if err := p.producer.PublishMessage(ctx, message(rec)); err != nil {
			failed++
			attempts := rec.Attempts + 1
			if !kafka.IsPermanent(err) {
				// брокер недоступен: остальные события упадут так же
				log.Error().Err(err).Int("attempts", attempts).Msg("failed to publish event to kafka")
				p.recordFailure(ctx, log, rec.ID, err)
				break
			}

			if attempts >= p.maxAttempts {
				log.Error().Err(err).Int("attempts", attempts).Msg("event rejected too many times, parking it")
				parkErr := p.store.Park(ctx, rec.ID, err)
				if parkErr == nil {
					parked++
					continue
				}
				log.Warn().Err(parkErr).Msg("failed to park event")
			} else {
				log.Error().Err(err).Int("attempts", attempts).Msg("event rejected by kafka")
				p.recordFailure(ctx, log, rec.ID, err)
			}
			// later events of this movie must not overtake it
			blocked[rec.AggregateID] = true
			continue
		}
		published++

		if err := p.store.MarkProcessed(ctx, rec.ID); err != nil {
			// опубликовано, но не помечено: уйдёт повторно
			log.Warn().Err(err).Msg("failed to mark event as processed")
			continue
		}
		marked++
	}

	p.logger.Info().
		Int("total", len(records)).
		Int("published", published).
		Int("failed", failed).
		Int("parked", parked).
		Int("marked", marked).
		Msg("batch processing completed")

	return marked, nil
}

func (p *Publisher) recordFailure(ctx context.Context, log zerolog.Logger, id int64, cause error) {
	if err := p.store.MarkFailed(ctx, id, cause); err != nil {
		log.Warn().Err(err).Msg("failed to record publish failure")
	}
}

func message(rec postgres.OutboxRecord) kafka.Message {
	return kafka.Message{
		Key:   rec.AggregateID.String(),
		Value: rec.Payload,
		Headers: map[string]string{
			"event_id":    rec.EventID.String(),
			"event_type":  rec.EventType,
			"occurred_at": rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
