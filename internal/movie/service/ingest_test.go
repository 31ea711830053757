package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

func fullFiles() models.MovieFiles {
	return models.MovieFiles{Thumbnail: thumbnailFile(), Movie: movieFile(), Trailer: trailerFile()}
}

// expectUpload scripts a successful transfer that reports half the bytes
// before completing, and records the order of uploads.
func expectUpload(h *harness, videoID string, order *[]string) *mock.Call {
	return h.host.On("UploadResumable", mock.Anything, videoID, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			body := args.Get(2).(io.Reader)
			size := args.Get(3).(int64)
			onProgress := args.Get(4).(videohost.ProgressFunc)
			_, _ = io.ReadAll(body)
			onProgress(size/2, size)
			onProgress(size, size)
			if order != nil {
				*order = append(*order, videoID)
			}
		}).
		Return(nil).
		Once()
}

func TestCreateMovie_PersistsWithPlaceholders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	fixedID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	h.svc.idGen = func() uuid.UUID { return fixedID }

	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night").Return("vid-body", nil).Once()
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night - Trailer").Return("vid-trailer", nil).Once()

	got, err := h.svc.CreateMovie(ctx, h.creator, h.input(), fullFiles())
	require.NoError(t, err)

	require.Equal(t, fixedID, got.ID)
	require.Equal(t, "vid-body", *got.Body.ExternalID)
	require.Equal(t, "vid-trailer", *got.Trailer.ExternalID)
	require.False(t, got.Body.Uploaded)
	require.False(t, got.Trailer.Uploaded)
	require.Equal(t, models.StatusQueued, got.Body.Status)
	require.Equal(t, models.StatusQueued, got.Trailer.Status)
	require.Equal(t, models.MovieActive, got.Status)
	require.Equal(t, h.creator, got.CreatedBy)

	require.Len(t, h.blobs.puts, 1)
	assert.Equal(t, "image/png", h.blobs.puts[0].contentType)
	assert.True(t, strings.HasPrefix(h.blobs.puts[0].key, "movies/"+fixedID.String()+"/thumbnail-"))
	assert.Equal(t, "https://cdn.test/"+h.blobs.puts[0].key, got.ThumbnailURL)

	stored := h.load(t, fixedID)
	require.Equal(t, got.Body, stored.Body)
	require.Equal(t, got.Trailer, stored.Trailer)

	created := eventsOf[*models.MovieCreated](h.movies.Events())
	require.Len(t, created, 1)
	require.Equal(t, fixedID, created[0].AggregateID())
	h.host.AssertExpectations(t)
}

func TestCreateMovie_WithoutTrailer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night").Return("vid-body", nil).Once()

	files := fullFiles()
	files.Trailer = nil
	got, err := h.svc.CreateMovie(ctx, h.creator, h.input(), files)
	require.NoError(t, err)
	require.False(t, got.Trailer.HasExternalID())
	require.Equal(t, models.ProcessingStatus(""), got.Trailer.Status)
	h.host.AssertNumberOfCalls(t, "CreateVideoPlaceholder", 1)
}

func TestCreateMovie_RejectsBeforeAnyExternalCall(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(h *harness, in *models.MovieInput, files *models.MovieFiles)
		field string
	}{
		{
			name: "premiere exactly one day ahead",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				p := testNow.Add(24 * time.Hour)
				in.PremieresOn = &p
			},
			field: "premieresOn",
		},
		{
			name: "premiere in the past",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				p := testNow.Add(-time.Hour)
				in.PremieresOn = &p
			},
			field: "premieresOn",
		},
		{
			name: "available till less than a day after premiere",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				till := in.PremieresOn.Add(23 * time.Hour)
				in.AvailableTill = &till
			},
			field: "availableTill",
		},
		{
			name: "synopsis too long",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				in.Synopsis = strings.Repeat("s", 251)
			},
			field: "synopsis",
		},
		{
			name: "unknown age tag",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				in.AgeTag = "X"
			},
			field: "ageTag",
		},
		{
			name: "unknown category",
			edit: func(_ *harness, in *models.MovieInput, _ *models.MovieFiles) {
				in.CategoryIDs = append(in.CategoryIDs, uuid.New())
			},
			field: "categories",
		},
		{
			name: "thumbnail missing",
			edit: func(_ *harness, _ *models.MovieInput, files *models.MovieFiles) {
				files.Thumbnail = nil
			},
			field: "thumbnail",
		},
		{
			name: "thumbnail is not an image",
			edit: func(_ *harness, _ *models.MovieInput, files *models.MovieFiles) {
				files.Thumbnail = memFile("poster.png", mp4Bytes)
			},
			field: "thumbnail",
		},
		{
			name: "movie missing",
			edit: func(_ *harness, _ *models.MovieInput, files *models.MovieFiles) {
				files.Movie = nil
			},
			field: "movie",
		},
		{
			name: "trailer is not a video",
			edit: func(_ *harness, _ *models.MovieInput, files *models.MovieFiles) {
				files.Trailer = memFile("trailer.mp4", pngBytes)
			},
			field: "trailer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			in, files := h.input(), fullFiles()
			tc.edit(h, &in, &files)

			got, err := h.svc.CreateMovie(ctx, h.creator, in, files)
			require.ErrorIs(t, err, models.ErrInvalidArgument)
			require.Nil(t, got)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)

			// Nothing was created anywhere.
			page, err := h.movies.List(ctx, models.MovieFilter{})
			require.NoError(t, err)
			require.Zero(t, page.TotalCount)
			require.Empty(t, h.blobs.puts)
			h.host.AssertNotCalled(t, "CreateVideoPlaceholder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateMovie_RequiresCreator(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateMovie(context.Background(), uuid.Nil, h.input(), fullFiles())
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCreateMovie_PlaceholderErrorNotPersisted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night").Return("", errors.New("host down")).Once()

	_, err := h.svc.CreateMovie(ctx, h.creator, h.input(), fullFiles())
	require.Error(t, err)

	page, err := h.movies.List(ctx, models.MovieFilter{})
	require.NoError(t, err)
	require.Zero(t, page.TotalCount)
}

func TestSubmit_UploadsBodyThenTrailer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night").Return("vid-body", nil).Once()
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night - Trailer").Return("vid-trailer", nil).Once()

	var order []string
	expectUpload(h, "vid-body", &order)
	expectUpload(h, "vid-trailer", &order)

	res, err := h.svc.Submit(ctx, h.creator, h.input(), fullFiles())
	require.NoError(t, err)
	require.Equal(t, []string{"vid-body", "vid-trailer"}, order)

	require.True(t, res.Body.Attempted)
	require.True(t, res.Body.Uploaded)
	require.True(t, res.Trailer.Attempted)
	require.True(t, res.Trailer.Uploaded)

	stored := h.load(t, res.Movie.ID)
	require.True(t, stored.Body.Uploaded)
	require.True(t, stored.Trailer.Uploaded)
	require.Equal(t, models.StatusUploaded, stored.Body.Status)
	require.Equal(t, models.StatusUploaded, stored.Trailer.Status)

	uploaded := eventsOf[*models.MovieAssetUploaded](h.movies.Events())
	require.Len(t, uploaded, 2)
	require.Equal(t, models.AssetBody, uploaded[0].Kind())
	require.Equal(t, models.AssetTrailer, uploaded[1].Kind())

	p, err := h.progress.Get(ctx, res.Movie.ID, models.AssetBody)
	require.NoError(t, err)
	require.Equal(t, models.UploadFulfilled, p.State)
	require.Equal(t, float64(100), p.Progress)
	h.host.AssertExpectations(t)
}

func TestSubmit_BodyUploadFailureSkipsTrailer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night").Return("vid-body", nil).Once()
	h.host.On("CreateVideoPlaceholder", mock.Anything, "The Long Night - Trailer").Return("vid-trailer", nil).Once()
	h.host.On("UploadResumable", mock.Anything, "vid-body", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).
		Once()

	res, err := h.svc.Submit(ctx, h.creator, h.input(), fullFiles())
	require.ErrorIs(t, err, models.ErrUploadFailed)
	require.NotNil(t, res)
	require.True(t, res.Body.Attempted)
	require.False(t, res.Body.Uploaded)
	require.Equal(t, "movie upload failed, retry", res.Body.Error)
	var uerr *models.UploadError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, models.AssetBody, uerr.Kind)
	require.ErrorContains(t, err, "connection reset")
	require.False(t, res.Trailer.Attempted)
	h.host.AssertNotCalled(t, "UploadResumable", mock.Anything, "vid-trailer", mock.Anything, mock.Anything, mock.Anything)

	// The record exists, stays resubmittable and carries no terminal state.
	stored := h.load(t, res.Movie.ID)
	require.False(t, stored.Body.Uploaded)
	require.Equal(t, models.StatusQueued, stored.Body.Status)

	p, err := h.progress.Get(ctx, res.Movie.ID, models.AssetBody)
	require.NoError(t, err)
	require.Equal(t, models.UploadRejected, p.State)
	require.Equal(t, "movie upload failed, retry", p.Message)
}

func TestUpdateMovie_UploadedAssetIsLocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		m.Body.Uploaded = true
		m.Body.Status = models.StatusFinished
		m.Trailer.ExternalID = ptr("vid-trailer")
		m.Trailer.Uploaded = true
		m.Trailer.Status = models.StatusProcessing
	})

	for _, files := range []models.MovieFiles{
		{Movie: movieFile()},
		{Trailer: trailerFile()},
	} {
		_, err := h.svc.UpdateMovie(ctx, h.creator, m.ID, h.input(), files)
		require.ErrorIs(t, err, models.ErrAssetLocked)
	}

	h.host.AssertNotCalled(t, "CreateVideoPlaceholder", mock.Anything, mock.Anything)
	h.host.AssertNotCalled(t, "UploadResumable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.Equal(t, int64(0), h.load(t, m.ID).Version)
}

func TestUpdateMovie_MetadataOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		published(m)
	})

	in := h.input()
	in.Name = "The Longer Night"
	same := m.PremieresOn
	in.PremieresOn = &same
	inactive := models.MovieInactive
	in.Status = &inactive

	res, err := h.svc.UpdateMovie(ctx, h.creator, m.ID, in, models.MovieFiles{})
	require.NoError(t, err)
	require.False(t, res.Body.Attempted)
	require.True(t, res.Body.Uploaded)

	stored := h.load(t, m.ID)
	require.Equal(t, "The Longer Night", stored.Name)
	require.Equal(t, models.MovieInactive, stored.Status)
	require.Equal(t, m.PremieresOn, stored.PremieresOn)
}

func TestUpdateMovie_MovedPremiereIsRechecked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, published)

	in := h.input()
	soon := testNow.Add(time.Hour)
	in.PremieresOn = &soon

	_, err := h.svc.UpdateMovie(ctx, h.creator, m.ID, in, models.MovieFiles{})
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUpdateMovie_BodyRequiredUntilUploaded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, nil)

	_, err := h.svc.UpdateMovie(ctx, h.creator, m.ID, h.input(), models.MovieFiles{})
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUpdateMovie_AddsTrailerPlaceholder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, published)

	in := h.input()
	in.Name = "Renamed"
	same := m.PremieresOn
	in.PremieresOn = &same

	h.host.On("CreateVideoPlaceholder", mock.Anything, "Renamed - Trailer").Return("vid-trailer", nil).Once()
	expectUpload(h, "vid-trailer", nil)

	res, err := h.svc.UpdateMovie(ctx, h.creator, m.ID, in, models.MovieFiles{Trailer: trailerFile()})
	require.NoError(t, err)
	require.True(t, res.Trailer.Uploaded)

	stored := h.load(t, m.ID)
	require.Equal(t, "vid-trailer", *stored.Trailer.ExternalID)
	require.True(t, stored.Trailer.Uploaded)
	require.Equal(t, models.StatusFinished, stored.Body.Status)
	h.host.AssertExpectations(t)
}

func TestUpdateMovie_OtherCreatorForbidden(t *testing.T) {
	h := newHarness(t)
	m := h.seed(t, nil)

	_, err := h.svc.UpdateMovie(context.Background(), uuid.New(), m.ID, h.input(), models.MovieFiles{Movie: movieFile()})
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestMarkUploaded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		m.Trailer.ExternalID = ptr("vid-trailer")
		m.Trailer.Status = models.StatusQueued
	})

	// Trailer cannot be marked before the body.
	_, err := h.svc.MarkUploaded(ctx, h.creator, m.ID, false, true)
	require.ErrorIs(t, err, models.ErrInvalidArgument)

	got, err := h.svc.MarkUploaded(ctx, h.creator, m.ID, true, true)
	require.NoError(t, err)
	require.True(t, got.Body.Uploaded)
	require.True(t, got.Trailer.Uploaded)
	require.Len(t, eventsOf[*models.MovieAssetUploaded](h.movies.Events()), 2)

	// Repeating is a no-op and false never unflips.
	again, err := h.svc.MarkUploaded(ctx, h.creator, m.ID, true, false)
	require.NoError(t, err)
	require.True(t, again.Body.Uploaded)
	require.True(t, again.Trailer.Uploaded)
	require.Equal(t, got.Version, again.Version)
	require.Len(t, eventsOf[*models.MovieAssetUploaded](h.movies.Events()), 2)
}

func TestMarkUploaded_WithoutTarget(t *testing.T) {
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) { m.Body.ExternalID = nil })

	_, err := h.svc.MarkUploaded(context.Background(), h.creator, m.ID, true, false)
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUploadCredentials(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) {
		m.Trailer.ExternalID = ptr("vid-trailer")
	})

	want := videohost.UploadCredentials{VideoID: "vid-body", Signature: "sig"}
	h.host.On("GetUploadCredentials", "vid-body", testNow.Add(DefaultCredentialsTTL)).Return(want).Once()

	got, err := h.svc.UploadCredentials(ctx, h.creator, m.ID, models.AssetBody)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = h.svc.UploadCredentials(ctx, h.creator, m.ID, models.AssetTrailer)
	require.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = h.svc.UploadCredentials(ctx, uuid.New(), m.ID, models.AssetBody)
	require.ErrorIs(t, err, models.ErrForbidden)
	h.host.AssertExpectations(t)
}

func TestUploadCredentials_UploadedAssetLocked(t *testing.T) {
	h := newHarness(t)
	m := h.seed(t, func(m *models.Movie) { m.Body.Uploaded = true })

	_, err := h.svc.UploadCredentials(context.Background(), h.creator, m.ID, models.AssetBody)
	require.ErrorIs(t, err, models.ErrAssetLocked)
	h.host.AssertNotCalled(t, "GetUploadCredentials", mock.Anything, mock.Anything)
}

func TestUploadProgress_IdleByDefault(t *testing.T) {
	h := newHarness(t)
	m := h.seed(t, nil)

	got, err := h.svc.UploadProgress(context.Background(), h.creator, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.UploadIdle, got.Body.State)
	require.Equal(t, models.UploadIdle, got.Trailer.State)
}
