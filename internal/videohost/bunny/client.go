// Package bunny is a client for the Bunny Stream video API.
package bunny

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

const (
	DefaultBaseURL     = "https://video.bunnycdn.com"
	DefaultTUSEndpoint = "https://video.bunnycdn.com/tusupload"
)

type Config struct {
	BaseURL      string
	TUSEndpoint  string
	LibraryID    string
	APIKey       string
	RPS          float64
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// APIError is a non-2xx answer from the host.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bunny %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func New(cfg Config) (*Client, error) {
	if cfg.LibraryID == "" {
		return nil, fmt.Errorf("library id is empty")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is empty")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries cannot be negative")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TUSEndpoint == "" {
		cfg.TUSEndpoint = DefaultTUSEndpoint
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// no overall timeout: uploads of full movies take long, ctx bounds them
		hc = &http.Client{}
	}

	return &Client{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS)+1),
		logger:  cfg.Logger.With().Str("component", "bunny_client").Logger(),
	}, nil
}

var _ videohost.Host = (*Client)(nil)

func (c *Client) CreateVideoPlaceholder(ctx context.Context, title string) (string, error) {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return "", fmt.Errorf("marshal create video: %w", err)
	}

	var out struct {
		GUID string `json:"guid"`
	}
	path := "/library/" + c.cfg.LibraryID + "/videos"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &out, false); err != nil {
		return "", fmt.Errorf("create video placeholder: %w", err)
	}
	if out.GUID == "" {
		return "", fmt.Errorf("create video placeholder: empty guid in response")
	}

	c.logger.Info().Str("video_id", out.GUID).Str("title", title).Msg("video placeholder created")
	return out.GUID, nil
}

// GetUploadCredentials signs a presigned TUS upload. No network call.
func (c *Client) GetUploadCredentials(videoID string, expiresAt time.Time) videohost.UploadCredentials {
	return videohost.UploadCredentials{
		Endpoint:  c.cfg.TUSEndpoint,
		VideoID:   videoID,
		LibraryID: c.cfg.LibraryID,
		Signature: Sign(c.cfg.LibraryID, c.cfg.APIKey, expiresAt.Unix(), videoID),
		ExpiresAt: expiresAt,
	}
}

// Sign computes the presigned upload signature
// sha256(library_id + api_key + expiration_time + video_id).
func Sign(libraryID, apiKey string, expires int64, videoID string) string {
	sum := sha256.Sum256([]byte(libraryID + apiKey + strconv.FormatInt(expires, 10) + videoID))
	return hex.EncodeToString(sum[:])
}

// UploadResumable streams the bytes of one video to the host. A later
// call with the same video id replaces a partial upload.
func (c *Client) UploadResumable(ctx context.Context, videoID string, body io.Reader, size int64, onProgress videohost.ProgressFunc) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("upload %s: %w", videoID, err)
	}

	path := "/library/" + c.cfg.LibraryID + "/videos/" + videoID
	pr := &progressReader{r: body, total: size, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.BaseURL+path, pr)
	if err != nil {
		return fmt.Errorf("upload %s: %w", videoID, err)
	}
	req.ContentLength = size
	req.Header.Set("AccessKey", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(http.MethodPut, path, resp); err != nil {
		return fmt.Errorf("upload %s: %w", videoID, err)
	}

	c.logger.Info().
		Str("video_id", videoID).
		Int64("bytes", pr.sent).
		Dur("took", time.Since(start)).
		Msg("video uploaded")
	return nil
}

func (c *Client) GetVideoMetadata(ctx context.Context, videoID string) (videohost.VideoMetadata, error) {
	var out struct {
		Length int `json:"length"`
		Status int `json:"status"`
	}
	path := "/library/" + c.cfg.LibraryID + "/videos/" + videoID
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return videohost.VideoMetadata{}, fmt.Errorf("get video %s: %w", videoID, err)
	}
	return videohost.VideoMetadata{
		DurationSeconds: out.Length,
		Status:          MapVideoStatus(out.Status),
	}, nil
}

// doJSON sends one API request. Idempotent requests are retried on
// transport errors and 5xx answers.
func (c *Client) doJSON(ctx context.Context, method, path string, payload []byte, out any, idempotent bool) error {
	attempts := 1
	if idempotent {
		attempts += c.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			c.logger.Warn().
				Err(lastErr).
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying video host request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil || !isRetriable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("AccessKey", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(method, path, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkResponse(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", models.ErrNotFound, apiErr)
	}
	return apiErr
}

func isRetriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

type progressReader struct {
	r          io.Reader
	sent       int64
	total      int64
	onProgress videohost.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}
