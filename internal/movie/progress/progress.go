// Package progress stores the transient state of in-flight asset uploads.
// Nothing here is authoritative: the movie record owns the uploaded flags.
package progress

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

type Tracker interface {
	Set(ctx context.Context, movieID uuid.UUID, kind models.AssetKind, p models.UploadProgress) error
	// Get returns an idle state when nothing was recorded.
	Get(ctx context.Context, movieID uuid.UUID, kind models.AssetKind) (models.UploadProgress, error)
}

type key struct {
	movieID uuid.UUID
	kind    models.AssetKind
}

type MemoryTracker struct {
	mu   sync.RWMutex
	data map[key]models.UploadProgress
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{data: make(map[key]models.UploadProgress)}
}

func (t *MemoryTracker) Set(_ context.Context, movieID uuid.UUID, kind models.AssetKind, p models.UploadProgress) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[key{movieID, kind}] = p
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, movieID uuid.UUID, kind models.AssetKind) (models.UploadProgress, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.data[key{movieID, kind}]
	if !ok {
		return models.UploadProgress{State: models.UploadIdle}, nil
	}
	return p, nil
}
