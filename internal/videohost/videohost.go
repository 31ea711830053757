// Package videohost defines the boundary to the external video platform
// that stores, transcodes and streams movie assets.
package videohost

import (
	"context"
	"io"
	"time"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// UploadCredentials are the signed parameters a client needs to upload
// bytes for one video straight to the host's resumable endpoint.
type UploadCredentials struct {
	Endpoint  string    `json:"endpoint"`
	VideoID   string    `json:"video_id"`
	LibraryID string    `json:"library_id"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VideoMetadata struct {
	DurationSeconds int
	Status          models.ProcessingStatus
}

// ProgressFunc is called as bytes are acknowledged by the host.
type ProgressFunc func(sent, total int64)

type Host interface {
	CreateVideoPlaceholder(ctx context.Context, title string) (string, error)
	GetUploadCredentials(videoID string, expiresAt time.Time) UploadCredentials
	UploadResumable(ctx context.Context, videoID string, body io.Reader, size int64, onProgress ProgressFunc) error
	GetVideoMetadata(ctx context.Context, videoID string) (VideoMetadata, error)
}
