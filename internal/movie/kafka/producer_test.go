package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	writes [][]kafkago.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		if err != nil {
			return err
		}
	}
	w.writes = append(w.writes, msgs)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "movie-events",
		RetryBackoff: time.Millisecond,
		Logger:       zerolog.Nop(),
	}
}

func newTestProducer(t *testing.T, cfg ProducerConfig, w *fakeWriter) *Producer {
	t.Helper()
	p, err := NewProducer(cfg)
	require.NoError(t, err)
	p.writer = w
	return p
}

func TestNewProducer_Defaults(t *testing.T) {
	p, err := NewProducer(ProducerConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "movie-events",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Equal(t, "movie-events", p.config.Topic)
	assert.Equal(t, 3, p.config.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, p.config.RetryBackoff)
	assert.Equal(t, 10*time.Second, p.config.WriteTimeout)
	assert.Equal(t, 100, p.config.BatchSize)
	assert.False(t, p.config.Async)
}

func TestNewProducer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(c *ProducerConfig)
		wantErr string
	}{
		{"empty brokers", func(c *ProducerConfig) { c.Brokers = nil }, "brokers list is empty"},
		{"empty topic", func(c *ProducerConfig) { c.Topic = "" }, "topic is empty"},
		{"negative max retries", func(c *ProducerConfig) { c.MaxRetries = -1 }, "max_retries cannot be negative"},
		{"negative retry backoff", func(c *ProducerConfig) { c.RetryBackoff = -time.Second }, "retry_backoff cannot be negative"},
		{"negative write timeout", func(c *ProducerConfig) { c.WriteTimeout = -time.Second }, "write_timeout cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.edit(&cfg)

			p, err := NewProducer(cfg)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := ProducerConfig{
		MaxRetries:   5,
		RetryBackoff: 200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		BatchSize:    50,
	}
	setDefaults(&cfg)

	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"i/o timeout", errors.New("i/o timeout"), true},
		{"kafka leader not available", kafkago.LeaderNotAvailable, true},
		{"kafka message too large", kafkago.MessageSizeTooLarge, false},
		{"invalid message", errors.New("invalid message format"), false},
		{"authorization failed", errors.New("authorization failed"), false},
		{"unknown error", errors.New("something odd"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, isRetriableError(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(kafkago.MessageSizeTooLarge))
	assert.True(t, IsPermanent(fmt.Errorf("write: %w", errors.New("unknown topic or partition"))))
	assert.False(t, IsPermanent(errors.New("dial tcp: connection refused")))
	assert.False(t, IsPermanent(context.Canceled))
	assert.False(t, IsPermanent(nil))
}

func TestProducer_PublishRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{errs: []error{errors.New("connection reset by peer"), errors.New("i/o timeout")}}
	p := newTestProducer(t, testConfig(), w)

	err := p.PublishMessage(context.Background(), Message{
		Key:     "movie-1",
		Value:   []byte(`{"movie_id":"movie-1"}`),
		Headers: map[string]string{"event_type": "MovieCreated"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, w.calls)
	require.Len(t, w.writes, 1)
	msg := w.writes[0][0]
	assert.Equal(t, "movie-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "MovieCreated", string(msg.Headers[0].Value))

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesPublished)
	assert.Equal(t, int64(2), m.RetriesTotal)
	assert.Zero(t, m.MessagesFailed)
}

func TestProducer_PublishStopsOnPermanentError(t *testing.T) {
	w := &fakeWriter{errs: []error{kafkago.MessageSizeTooLarge}}
	p := newTestProducer(t, testConfig(), w)

	err := p.Publish(context.Background(), "movie-1", []byte("x"))
	require.ErrorIs(t, err, kafkago.MessageSizeTooLarge)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, int64(1), p.GetMetrics().MessagesFailed)
}

func TestProducer_PublishGivesUpAfterMaxRetries(t *testing.T) {
	boom := errors.New("broker unreachable")
	w := &fakeWriter{errs: []error{boom, boom, boom, boom, boom}}
	cfg := testConfig()
	cfg.MaxRetries = 2
	p := newTestProducer(t, cfg, w)

	err := p.Publish(context.Background(), "movie-1", []byte("x"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, w.calls)
}

func TestProducer_PublishBatchSplitsByBatchSize(t *testing.T) {
	w := &fakeWriter{}
	cfg := testConfig()
	cfg.BatchSize = 2
	p := newTestProducer(t, cfg, w)

	msgs := []Message{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	require.NoError(t, p.PublishBatch(context.Background(), msgs))

	require.Len(t, w.writes, 2)
	assert.Len(t, w.writes[0], 2)
	assert.Len(t, w.writes[1], 1)
	assert.Equal(t, int64(3), p.GetMetrics().MessagesPublished)

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, w.writes, 2)
}

func TestProducer_GetMetrics_Average(t *testing.T) {
	p := newTestProducer(t, testConfig(), &fakeWriter{})

	p.metrics.PublishDuration.Add(int64(100 * time.Millisecond))
	assert.Equal(t, time.Duration(0), p.GetMetrics().AvgPublishTime)

	p.metrics.MessagesPublished.Add(10)
	assert.Equal(t, 10*time.Millisecond, p.GetMetrics().AvgPublishTime)
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(t, testConfig(), w)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")

	ctx := context.Background()
	for _, err := range []error{
		p.Publish(ctx, "k", []byte("v")),
		p.PublishBatch(ctx, []Message{{Key: "k"}}),
		p.HealthCheck(ctx),
	} {
		require.Error(t, err)
		assert.Contains(t, err.Error(), "producer is closed")
	}
}
