package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

type HostMock struct {
	mock.Mock
}

func (m *HostMock) CreateVideoPlaceholder(ctx context.Context, title string) (string, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Error(1)
}

func (m *HostMock) GetUploadCredentials(videoID string, expiresAt time.Time) videohost.UploadCredentials {
	args := m.Called(videoID, expiresAt)
	return args.Get(0).(videohost.UploadCredentials)
}

func (m *HostMock) UploadResumable(ctx context.Context, videoID string, body io.Reader, size int64, onProgress videohost.ProgressFunc) error {
	args := m.Called(ctx, videoID, body, size, onProgress)
	return args.Error(0)
}

func (m *HostMock) GetVideoMetadata(ctx context.Context, videoID string) (videohost.VideoMetadata, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(videohost.VideoMetadata), args.Error(1)
}

// StoreMock is used where a test needs to script record store failures.
type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Create(ctx context.Context, movie *models.Movie, events ...models.DomainEvent) error {
	args := m.Called(ctx, movie, events)
	return args.Error(0)
}

func (m *StoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Movie), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	args := m.Called(ctx, externalID)
	if v := args.Get(0); v != nil {
		return v.(*models.Movie), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) Update(ctx context.Context, movie *models.Movie, events ...models.DomainEvent) error {
	args := m.Called(ctx, movie, events)
	return args.Error(0)
}

func (m *StoreMock) List(ctx context.Context, f models.MovieFilter) (models.Page[*models.Movie], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(models.Page[*models.Movie]), args.Error(1)
}

func (m *StoreMock) IncrementViews(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type fakeBlobs struct {
	mu   sync.Mutex
	puts []putCall
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, key, contentType string, r io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{key: key, contentType: contentType, body: b})
	return "https://cdn.test/" + key, nil
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

func memFile(name string, content []byte) *models.File {
	return &models.File{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadSeekCloser, error) {
			return readSeekNopCloser{bytes.NewReader(content)}, nil
		},
	}
}

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	mp4Bytes = append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), make([]byte, 64)...)
)

func thumbnailFile() *models.File { return memFile("poster.png", pngBytes) }
func movieFile() *models.File     { return memFile("movie.mp4", mp4Bytes) }
func trailerFile() *models.File   { return memFile("trailer.mp4", mp4Bytes) }
