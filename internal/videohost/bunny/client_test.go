package bunny

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:      srv.URL,
		LibraryID:    "42",
		APIKey:       "secret",
		RPS:          1000,
		RetryBackoff: time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty library", Config{APIKey: "k"}, "library id is empty"},
		{"empty key", Config{LibraryID: "1"}, "api key is empty"},
		{"negative retries", Config{LibraryID: "1", APIKey: "k", MaxRetries: -1}, "max_retries cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{LibraryID: "1", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultTUSEndpoint, c.cfg.TUSEndpoint)
	assert.Equal(t, 3, c.cfg.MaxRetries)
}

func TestCreateVideoPlaceholder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/library/42/videos", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("AccessKey"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Test", body["title"])

		_ = json.NewEncoder(w).Encode(map[string]any{"guid": "abc-123"})
	}))

	id, err := c.CreateVideoPlaceholder(context.Background(), "Test")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestCreateVideoPlaceholder_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.CreateVideoPlaceholder(context.Background(), "Test")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetVideoMetadata_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/library/42/videos/abc", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"length": 5400, "status": 4})
	}))

	meta, err := c.GetVideoMetadata(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 5400, meta.DurationSeconds)
	assert.Equal(t, models.StatusFinished, meta.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetVideoMetadata_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))

	_, err := c.GetVideoMetadata(context.Background(), "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUploadResumable_ReportsProgress(t *testing.T) {
	payload := strings.Repeat("x", 64*1024)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/library/42/videos/vid", r.URL.Path)
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Len(t, b, len(payload))
		w.WriteHeader(http.StatusOK)
	}))

	var last, total int64
	err := c.UploadResumable(context.Background(), "vid", strings.NewReader(payload), int64(len(payload)), func(sent, tot int64) {
		last, total = sent, tot
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), last)
	assert.Equal(t, int64(len(payload)), total)
}

func TestUploadResumable_Failure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))

	err := c.UploadResumable(context.Background(), "vid", strings.NewReader("abc"), 3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGetUploadCredentials(t *testing.T) {
	c, err := New(Config{LibraryID: "42", APIKey: "secret"})
	require.NoError(t, err)

	exp := time.Unix(1700000000, 0)
	creds := c.GetUploadCredentials("vid", exp)

	assert.Equal(t, DefaultTUSEndpoint, creds.Endpoint)
	assert.Equal(t, "vid", creds.VideoID)
	assert.Equal(t, "42", creds.LibraryID)
	assert.Equal(t, Sign("42", "secret", 1700000000, "vid"), creds.Signature)
	assert.Len(t, creds.Signature, 64)
	assert.NotEqual(t, Sign("42", "secret", 1700000001, "vid"), creds.Signature)
}

func TestMapWebhookStatus(t *testing.T) {
	s, ok := MapWebhookStatus(3)
	assert.True(t, ok)
	assert.Equal(t, models.StatusFinished, s)

	s, ok = MapWebhookStatus(8)
	assert.True(t, ok)
	assert.Equal(t, models.StatusUploadFailed, s)

	_, ok = MapWebhookStatus(99)
	assert.False(t, ok)
}
