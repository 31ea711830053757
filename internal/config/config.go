package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	// Server
	HTTPAddr     string
	MaxUploadMB  int64
	LogLevel     zerolog.Level
	JWTSecret    string
	ShutdownWait time.Duration

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis, optional: upload progress stays in memory when empty
	RedisURL string

	// Video host
	VideoHostBaseURL     string
	VideoHostLibraryID   string
	VideoHostAPIKey      string
	VideoHostTUSEndpoint string
	VideoHostRPS         float64
	CredentialsTTL       time.Duration

	// Thumbnails
	ThumbnailStore   string
	ThumbnailDir     string
	ThumbnailBaseURL string
	ThumbnailBucket  string

	// Events. Kafka may reject an event OutboxMaxAttempts times before it
	// is parked; published events are kept for OutboxRetention, zero keeps
	// them.
	KafkaBrokers      []string
	KafkaTopic        string
	OutboxInterval    time.Duration
	OutboxBatchSize   int
	OutboxMaxAttempts int
	OutboxRetention   time.Duration
}

// Load reads .env if present, then the process environment. Malformed
// values are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		HTTPAddr:     getEnvOrDefault("HTTP_ADDR", ":8081"),
		MaxUploadMB:  int64(p.int("MAX_UPLOAD_MB", 2048)),
		LogLevel:     p.level("LOG_LEVEL", zerolog.InfoLevel),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		ShutdownWait: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: p.int("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: p.int("DB_MAX_IDLE_CONNS", 5),
		RedisURL:       os.Getenv("REDIS_URL"),

		VideoHostBaseURL:     getEnvOrDefault("VIDEO_HOST_BASE_URL", "https://video.bunnycdn.com"),
		VideoHostLibraryID:   os.Getenv("VIDEO_HOST_LIBRARY_ID"),
		VideoHostAPIKey:      os.Getenv("VIDEO_HOST_API_KEY"),
		VideoHostTUSEndpoint: getEnvOrDefault("VIDEO_HOST_TUS_ENDPOINT", "https://video.bunnycdn.com/tusupload"),
		VideoHostRPS:         p.float("VIDEO_HOST_RPS", 10),
		CredentialsTTL:       p.duration("UPLOAD_CREDENTIALS_TTL", 6*time.Hour),

		ThumbnailStore:   getEnvOrDefault("THUMBNAIL_STORE", "local"),
		ThumbnailDir:     getEnvOrDefault("THUMBNAIL_DIR", "./uploads/thumbnails"),
		ThumbnailBaseURL: getEnvOrDefault("THUMBNAIL_BASE_URL", "/static/thumbnails"),
		ThumbnailBucket:  os.Getenv("THUMBNAIL_S3_BUCKET"),

		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnvOrDefault("KAFKA_TOPIC", "movie-events"),
		OutboxInterval:    p.duration("OUTBOX_INTERVAL", time.Second),
		OutboxBatchSize:   p.int("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxAttempts: p.int("OUTBOX_MAX_ATTEMPTS", 10),
		OutboxRetention:   p.duration("OUTBOX_RETENTION", 7*24*time.Hour),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAPI checks what the api process needs.
func (c *Config) ValidateAPI() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	}
	if c.VideoHostLibraryID == "" {
		errs = append(errs, errors.New("VIDEO_HOST_LIBRARY_ID is empty"))
	}
	if c.VideoHostAPIKey == "" {
		errs = append(errs, errors.New("VIDEO_HOST_API_KEY is empty"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	switch c.ThumbnailStore {
	case "local":
	case "s3":
		if c.ThumbnailBucket == "" {
			errs = append(errs, errors.New("THUMBNAIL_S3_BUCKET is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("THUMBNAIL_STORE must be local or s3, got %q", c.ThumbnailStore))
	}
	return errors.Join(errs...)
}

// ValidatePublisher checks what the outbox publisher process needs.
func (c *Config) ValidatePublisher() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is empty"))
	}
	if c.OutboxInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_INTERVAL must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("OUTBOX_MAX_ATTEMPTS must be positive"))
	}
	if c.OutboxRetention < 0 {
		errs = append(errs, errors.New("OUTBOX_RETENTION must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors instead of silently using defaults.
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return n
}

func (p *parser) float(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return f
}

func (p *parser) duration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return d
}

func (p *parser) level(key string, defaultVal zerolog.Level) zerolog.Level {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(val))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return lvl
}
