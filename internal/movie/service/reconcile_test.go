package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

func TestNotification_UnknownIDDiscarded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, nil)

	err := h.svc.OnVideoStatusNotification(ctx, "vid-unknown", models.StatusFinished)
	require.NoError(t, err)

	require.Equal(t, m.Body, h.load(t, m.ID).Body)
	require.Empty(t, h.movies.Events())
	h.host.AssertNotCalled(t, "GetVideoMetadata", mock.Anything, mock.Anything)
}

func TestNotification_AppliedTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) { m.Body.Uploaded = true })

	h.host.On("GetVideoMetadata", mock.Anything, "vid-body").
		Return(videohost.VideoMetadata{DurationSeconds: 5400, Status: models.StatusFinished}, nil)

	require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-body", models.StatusFinished))
	once := h.load(t, m.ID)
	require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-body", models.StatusFinished))
	twice := h.load(t, m.ID)

	require.Equal(t, models.StatusFinished, twice.Body.Status)
	require.Equal(t, 5400, twice.Body.DurationSeconds)
	require.Equal(t, once, twice)

	changes := eventsOf[*models.MovieAssetStatusChanged](h.movies.Events())
	require.Len(t, changes, 1)
	require.Equal(t, models.StatusQueued, changes[0].From())
	require.Equal(t, models.StatusFinished, changes[0].To())
}

func TestNotification_RoutesByExternalID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		m.Trailer.ExternalID = ptr("vid-trailer")
		m.Trailer.Status = models.StatusQueued
	})
	h.host.On("GetVideoMetadata", mock.Anything, "vid-trailer").
		Return(videohost.VideoMetadata{DurationSeconds: 90}, nil).Once()

	require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-trailer", models.StatusEncoding))

	stored := h.load(t, m.ID)
	require.Equal(t, models.StatusEncoding, stored.Trailer.Status)
	require.Equal(t, 90, stored.Trailer.DurationSeconds)
	require.Equal(t, models.StatusQueued, stored.Body.Status)
}

func TestNotification_FinishedIgnoresLaterStages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		m.Body.Uploaded = true
		m.Body.Status = models.StatusFinished
	})
	h.host.On("GetVideoMetadata", mock.Anything, "vid-body").Return(videohost.VideoMetadata{}, nil)

	for _, s := range []models.ProcessingStatus{models.StatusCaptionsGenerated, models.StatusTitleGenerated, models.StatusEncoding} {
		require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-body", s))
		require.Equal(t, models.StatusFinished, h.load(t, m.ID).Body.Status, s)
	}

	require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-body", models.StatusProcessingFailed))
	require.Equal(t, models.StatusProcessingFailed, h.load(t, m.ID).Body.Status)
}

func TestNotification_MetadataFailureStillApplies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, nil)
	h.host.On("GetVideoMetadata", mock.Anything, "vid-body").
		Return(videohost.VideoMetadata{}, errors.New("timeout")).Once()

	require.NoError(t, h.svc.OnVideoStatusNotification(ctx, "vid-body", models.StatusProcessing))

	stored := h.load(t, m.ID)
	require.Equal(t, models.StatusProcessing, stored.Body.Status)
	require.Zero(t, stored.Body.DurationSeconds)
}

func TestNotification_ConcurrentWriteRetried(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	host := new(HostMock)
	svc := New(Deps{Movies: st, Host: host, Logger: zerolog.Nop()})

	id := uuid.New()
	base := &models.Movie{
		ID:      id,
		Body:    models.Asset{Kind: models.AssetBody, ExternalID: ptr("vid-body"), Status: models.StatusProcessing},
		Version: 4,
	}
	stale, fresh := base.Clone(), base.Clone()
	fresh.Version = 5

	host.On("GetVideoMetadata", mock.Anything, "vid-body").Return(videohost.VideoMetadata{}, nil).Once()
	st.On("FindByExternalID", mock.Anything, "vid-body").Return(base.Clone(), nil).Once()
	st.On("GetByID", mock.Anything, id).Return(stale, nil).Once()
	st.On("GetByID", mock.Anything, id).Return(fresh, nil).Once()
	st.On("Update", mock.Anything, stale, mock.Anything).Return(models.ErrConflict).Once()
	st.On("Update", mock.Anything, fresh, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.OnVideoStatusNotification(ctx, "vid-body", models.StatusFinished))
	require.Equal(t, models.StatusFinished, fresh.Body.Status)
	st.AssertExpectations(t)
}

func TestNotification_StoreErrorReturned(t *testing.T) {
	st := new(StoreMock)
	svc := New(Deps{Movies: st, Host: new(HostMock), Logger: zerolog.Nop()})
	st.On("FindByExternalID", mock.Anything, "vid-body").Return(nil, errors.New("db down")).Once()

	err := svc.OnVideoStatusNotification(context.Background(), "vid-body", models.StatusFinished)
	require.Error(t, err)
}
