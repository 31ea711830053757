package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const DefaultTTL = 24 * time.Hour

// RedisTracker keeps upload progress in Redis so every api replica sees
// the same state. Entries expire after ttl.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{client: client, ttl: ttl}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func Key(movieID uuid.UUID, kind models.AssetKind) string {
	return "upload-progress:" + movieID.String() + ":" + string(kind)
}

func (t *RedisTracker) Set(ctx context.Context, movieID uuid.UUID, kind models.AssetKind, p models.UploadProgress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := t.client.Set(ctx, Key(movieID, kind), b, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set progress: %w", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, movieID uuid.UUID, kind models.AssetKind) (models.UploadProgress, error) {
	b, err := t.client.Get(ctx, Key(movieID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.UploadProgress{State: models.UploadIdle}, nil
	}
	if err != nil {
		return models.UploadProgress{}, fmt.Errorf("redis get progress: %w", err)
	}

	var p models.UploadProgress
	if err := json.Unmarshal(b, &p); err != nil {
		return models.UploadProgress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return p, nil
}
