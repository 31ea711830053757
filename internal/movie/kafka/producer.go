package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 100 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second
	defaultBatchSize    = 100
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

// Message is one movie event on the wire. Key is the movie id so every
// event of a movie lands on the same partition in order.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type Metrics struct {
	MessagesPublished int64
	MessagesFailed    int64
	RetriesTotal      int64
	AvgPublishTime    time.Duration
}

type counters struct {
	MessagesPublished atomic.Int64
	MessagesFailed    atomic.Int64
	RetriesTotal      atomic.Int64
	PublishDuration   atomic.Int64
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Producer struct {
	writer  messageWriter
	config  ProducerConfig
	logger  zerolog.Logger
	metrics counters
	closed  atomic.Bool
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid producer config: %w", err)
	}
	setDefaults(&cfg)

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequireAll,
		Async:        cfg.Async,
		// Retries are handled in publish so they are visible in metrics.
		MaxAttempts: 1,
	}

	return &Producer{
		writer: w,
		config: cfg,
		logger: cfg.Logger.With().Str("component", "kafka_producer").Str("topic", cfg.Topic).Logger(),
	}, nil
}

func validateConfig(cfg *ProducerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.New("brokers list is empty")
	case cfg.Topic == "":
		return errors.New("topic is empty")
	case cfg.MaxRetries < 0:
		return errors.New("max_retries cannot be negative")
	case cfg.RetryBackoff < 0:
		return errors.New("retry_backoff cannot be negative")
	case cfg.WriteTimeout < 0:
		return errors.New("write_timeout cannot be negative")
	}
	return nil
}

func setDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	return p.PublishMessage(ctx, Message{Key: key, Value: value})
}

func (p *Producer) PublishMessage(ctx context.Context, msg Message) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}
	if err := p.write(ctx, toKafka(msg)); err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.Key, err)
	}
	return nil
}

func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}
	if len(msgs) == 0 {
		return nil
	}

	for start := 0; start < len(msgs); start += p.config.BatchSize {
		end := min(start+p.config.BatchSize, len(msgs))
		batch := make([]kafkago.Message, 0, end-start)
		for _, m := range msgs[start:end] {
			batch = append(batch, toKafka(m))
		}
		if err := p.write(ctx, batch...); err != nil {
			return fmt.Errorf("kafka publish batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// write retries retriable failures with linear backoff.
func (p *Producer) write(ctx context.Context, msgs ...kafkago.Message) error {
	started := time.Now()
	var err error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.metrics.RetriesTotal.Add(1)
			select {
			case <-ctx.Done():
				p.metrics.MessagesFailed.Add(int64(len(msgs)))
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * p.config.RetryBackoff):
			}
		}

		err = p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			p.metrics.MessagesPublished.Add(int64(len(msgs)))
			p.metrics.PublishDuration.Add(int64(time.Since(started)))
			return nil
		}
		if !isRetriableError(err) {
			break
		}

		p.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("messages", len(msgs)).
			Msg("kafka write failed, retrying")
	}

	p.metrics.MessagesFailed.Add(int64(len(msgs)))
	return err
}

func toKafka(m Message) kafkago.Message {
	out := kafkago.Message{Key: []byte(m.Key), Value: m.Value}
	for k, v := range m.Headers {
		out.Headers = append(out.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return out
}

var permanentMarkers = []string{
	"invalid message",
	"message too large",
	"authorization failed",
	"unknown topic",
}

// IsPermanent reports a broker rejection of the message itself, one that
// resending the same message will not fix.
func IsPermanent(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !isRetriableError(err)
}

// isRetriableError treats everything except context errors and known
// permanent broker rejections as transient.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	return true
}

func (p *Producer) GetMetrics() Metrics {
	m := Metrics{
		MessagesPublished: p.metrics.MessagesPublished.Load(),
		MessagesFailed:    p.metrics.MessagesFailed.Load(),
		RetriesTotal:      p.metrics.RetriesTotal.Load(),
	}
	if m.MessagesPublished > 0 {
		m.AvgPublishTime = time.Duration(p.metrics.PublishDuration.Load() / m.MessagesPublished)
	}
	return m
}

// HealthCheck dials the first reachable broker.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}

	var lastErr error
	for _, broker := range p.config.Brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return errors.New("producer already closed")
	}

	m := p.GetMetrics()
	p.logger.Info().
		Int64("published", m.MessagesPublished).
		Int64("failed", m.MessagesFailed).
		Int64("retries", m.RetriesTotal).
		Msg("kafka producer closed")
	return p.writer.Close()
}
