package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/domain"
	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

// UploadOutcome reports what happened to one asset during a submission.
type UploadOutcome struct {
	Attempted bool   `json:"attempted"`
	Uploaded  bool   `json:"uploaded"`
	Error     string `json:"error,omitempty"`
}

type SubmitResult struct {
	Movie   *models.Movie
	Body    UploadOutcome
	Trailer UploadOutcome
}

type AssetProgress struct {
	Body    models.UploadProgress `json:"movie"`
	Trailer models.UploadProgress `json:"trailer"`
}

// CreateMovie validates the submission, stores the thumbnail, requests
// upload targets from the video host and persists the record with both
// uploaded flags unset. Nothing external is touched when validation fails.
func (s *Service) CreateMovie(ctx context.Context, creatorID uuid.UUID, in models.MovieInput, files models.MovieFiles) (*models.Movie, error) {
	if creatorID == uuid.Nil {
		return nil, models.ErrUnauthorized
	}

	now := s.clock()
	if err := domain.ValidateMovieInput(in, now); err != nil {
		return nil, err
	}
	checked, err := checkFiles(files, true, true)
	if err != nil {
		return nil, err
	}
	categoryIDs := dedupe(in.CategoryIDs)
	if err := s.ensureCategories(ctx, categoryIDs); err != nil {
		return nil, err
	}

	m := &models.Movie{
		ID:           s.idGen(),
		Name:         strings.TrimSpace(in.Name),
		Synopsis:     strings.TrimSpace(in.Synopsis),
		AgeTag:       in.AgeTag,
		CategoryIDs:  categoryIDs,
		PremieresOn:  in.PremieresOn.UTC(),
		Status:       models.MovieActive,
		Downloadable: *in.Downloadable,
		Body:         models.Asset{Kind: models.AssetBody},
		Trailer:      models.Asset{Kind: models.AssetTrailer},
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.AvailableTill != nil {
		till := in.AvailableTill.UTC()
		m.AvailableTill = &till
	}
	if in.Status != nil {
		m.Status = *in.Status
	}

	log := s.logger.With().Str("movie_id", m.ID.String()).Logger()

	if m.ThumbnailURL, err = s.storeThumbnail(ctx, m.ID, files.Thumbnail, checked.thumbnailType); err != nil {
		return nil, err
	}

	bodyID, err := s.host.CreateVideoPlaceholder(ctx, m.Name)
	if err != nil {
		return nil, fmt.Errorf("create movie placeholder: %w", err)
	}
	m.Body.ExternalID = &bodyID
	m.Body.Status = models.StatusQueued

	if files.Trailer != nil {
		trailerID, err := s.host.CreateVideoPlaceholder(ctx, trailerTitle(m.Name))
		if err != nil {
			log.Warn().Str("body_video_id", bodyID).Msg("trailer placeholder failed, body placeholder left orphaned")
			return nil, fmt.Errorf("create trailer placeholder: %w", err)
		}
		m.Trailer.ExternalID = &trailerID
		m.Trailer.Status = models.StatusQueued
	}

	if err := s.movies.Create(ctx, m, models.NewMovieCreated(m, now)); err != nil {
		return nil, err
	}

	log.Info().
		Str("creator_id", creatorID.String()).
		Str("body_video_id", bodyID).
		Bool("has_trailer", m.Trailer.HasExternalID()).
		Msg("movie created")
	return m, nil
}

// UploadAsset transfers one asset's bytes to the video host and, once the
// host accepted them, flips the persisted uploaded flag. A transfer error
// is recorded in the progress tracker only and reported as ErrUploadFailed
// so the caller can resubmit.
func (s *Service) UploadAsset(ctx context.Context, m *models.Movie, kind models.AssetKind, f *models.File) (*models.Movie, error) {
	a := m.Asset(kind)
	if !a.HasExternalID() {
		return nil, models.NewValidationError(string(kind), "asset has no upload target")
	}
	if a.Uploaded {
		return nil, models.ErrAssetLocked
	}
	if f == nil {
		return nil, models.NewValidationError(string(kind), "file is required")
	}

	videoID := *a.ExternalID
	log := s.logger.With().
		Str("movie_id", m.ID.String()).
		Str("asset", string(kind)).
		Str("video_id", videoID).
		Logger()

	rep := &progressReporter{svc: s, ctx: ctx, movieID: m.ID, kind: kind}
	rep.set(models.UploadProgress{State: models.UploadLoading, Total: f.Size})

	err := s.transfer(ctx, videoID, f, rep.report)
	if err != nil {
		rep.set(models.UploadProgress{
			State:   models.UploadRejected,
			Sent:    rep.sent,
			Total:   f.Size,
			Message: models.UploadFailedMessage(kind),
		})
		log.Warn().Err(err).Msg("asset upload failed")
		return nil, &models.UploadError{Kind: kind, Err: err}
	}

	rep.set(models.UploadProgress{State: models.UploadFulfilled, Progress: 100, Sent: f.Size, Total: f.Size})

	updated, err := s.mutate(ctx, m.ID, func(cur *models.Movie) ([]models.DomainEvent, bool, error) {
		ca := cur.Asset(kind)
		if !ca.HasExternalID() || *ca.ExternalID != videoID {
			return nil, false, fmt.Errorf("%s upload target changed during upload: %w", kind, models.ErrConflict)
		}
		if !domain.MarkUploaded(ca) {
			return nil, false, nil
		}
		return []models.DomainEvent{models.NewMovieAssetUploaded(cur.ID, *ca, s.clock())}, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist %s uploaded flag: %w", kind, err)
	}

	log.Info().Msg("asset uploaded")
	return updated, nil
}

func (s *Service) transfer(ctx context.Context, videoID string, f *models.File, onProgress videohost.ProgressFunc) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer r.Close()
	return s.host.UploadResumable(ctx, videoID, r, f.Size, onProgress)
}

// Submit is the full creator submission: create the record, upload the
// body, then the trailer. The trailer is not attempted when the body
// upload failed.
func (s *Service) Submit(ctx context.Context, creatorID uuid.UUID, in models.MovieInput, files models.MovieFiles) (*SubmitResult, error) {
	m, err := s.CreateMovie(ctx, creatorID, in, files)
	if err != nil {
		return nil, err
	}
	return s.uploadAll(ctx, m, files.Movie, files.Trailer)
}

// UpdateMovie edits metadata and uploads replacement assets. An asset that
// already completed its upload can never be replaced.
func (s *Service) UpdateMovie(ctx context.Context, creatorID, movieID uuid.UUID, in models.MovieInput, files models.MovieFiles) (*SubmitResult, error) {
	m, err := s.owned(ctx, creatorID, movieID)
	if err != nil {
		return nil, err
	}

	if files.Movie != nil && m.Body.Uploaded {
		return nil, fmt.Errorf("movie: %w", models.ErrAssetLocked)
	}
	if files.Trailer != nil && m.Trailer.Uploaded {
		return nil, fmt.Errorf("trailer: %w", models.ErrAssetLocked)
	}
	if err := domain.ValidateMovieUpdate(in, m, s.clock()); err != nil {
		return nil, err
	}
	checked, err := checkFiles(files, false, !m.Body.Uploaded)
	if err != nil {
		return nil, err
	}
	categoryIDs := dedupe(in.CategoryIDs)
	if err := s.ensureCategories(ctx, categoryIDs); err != nil {
		return nil, err
	}

	var thumbnailURL string
	if files.Thumbnail != nil {
		if thumbnailURL, err = s.storeThumbnail(ctx, m.ID, files.Thumbnail, checked.thumbnailType); err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(in.Name)
	var newBodyID, newTrailerID string
	if files.Movie != nil && !m.Body.HasExternalID() {
		if newBodyID, err = s.host.CreateVideoPlaceholder(ctx, name); err != nil {
			return nil, fmt.Errorf("create movie placeholder: %w", err)
		}
	}
	if files.Trailer != nil && !m.Trailer.HasExternalID() {
		if newTrailerID, err = s.host.CreateVideoPlaceholder(ctx, trailerTitle(name)); err != nil {
			return nil, fmt.Errorf("create trailer placeholder: %w", err)
		}
	}

	updated, err := s.mutate(ctx, m.ID, func(cur *models.Movie) ([]models.DomainEvent, bool, error) {
		if files.Movie != nil && cur.Body.Uploaded || files.Trailer != nil && cur.Trailer.Uploaded {
			return nil, false, models.ErrAssetLocked
		}
		applyInput(cur, in, categoryIDs)
		if thumbnailURL != "" {
			cur.ThumbnailURL = thumbnailURL
		}
		attachTarget(&cur.Body, newBodyID)
		attachTarget(&cur.Trailer, newTrailerID)
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movie_id", m.ID.String()).
		Bool("new_movie_file", files.Movie != nil).
		Bool("new_trailer_file", files.Trailer != nil).
		Msg("movie updated")

	return s.uploadAll(ctx, updated, files.Movie, files.Trailer)
}

func (s *Service) uploadAll(ctx context.Context, m *models.Movie, body, trailer *models.File) (*SubmitResult, error) {
	res := &SubmitResult{Movie: m}

	if body != nil {
		res.Body.Attempted = true
		updated, err := s.UploadAsset(ctx, m, models.AssetBody, body)
		if err != nil {
			res.Body.Error = clientUploadError(err)
			return res, err
		}
		res.Movie = updated
	}
	res.Body.Uploaded = res.Movie.Body.Uploaded

	if trailer != nil {
		res.Trailer.Attempted = true
		updated, err := s.UploadAsset(ctx, res.Movie, models.AssetTrailer, trailer)
		if err != nil {
			res.Trailer.Error = clientUploadError(err)
			return res, err
		}
		res.Movie = updated
	}
	res.Trailer.Uploaded = res.Movie.Trailer.Uploaded

	return res, nil
}

// clientUploadError is the per-asset outcome text sent back to the creator.
func clientUploadError(err error) string {
	var ue *models.UploadError
	if errors.As(err, &ue) {
		return ue.ClientMessage()
	}
	if errors.Is(err, models.ErrAssetLocked) || errors.Is(err, models.ErrInvalidArgument) {
		return err.Error()
	}
	return "upload could not be completed, retry"
}

// MarkUploaded records uploads the client performed directly against the
// host. Flags only move from false to true; false values are ignored.
func (s *Service) MarkUploaded(ctx context.Context, creatorID, movieID uuid.UUID, bodyUploaded, trailerUploaded bool) (*models.Movie, error) {
	if _, err := s.owned(ctx, creatorID, movieID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, movieID, func(cur *models.Movie) ([]models.DomainEvent, bool, error) {
		var events []models.DomainEvent
		now := s.clock()

		if bodyUploaded {
			if !cur.Body.HasExternalID() {
				return nil, false, models.NewValidationError("movieUploaded", "movie has no upload target")
			}
			if domain.MarkUploaded(&cur.Body) {
				events = append(events, models.NewMovieAssetUploaded(cur.ID, cur.Body, now))
			}
		}
		if trailerUploaded {
			if !cur.Trailer.HasExternalID() {
				return nil, false, models.NewValidationError("trailerUploaded", "trailer has no upload target")
			}
			if !cur.Body.Uploaded {
				return nil, false, models.NewValidationError("trailerUploaded", "movie must be uploaded before the trailer")
			}
			if domain.MarkUploaded(&cur.Trailer) {
				events = append(events, models.NewMovieAssetUploaded(cur.ID, cur.Trailer, now))
			}
		}
		return events, len(events) > 0, nil
	})
}

// UploadCredentials signs a direct upload for one asset.
func (s *Service) UploadCredentials(ctx context.Context, creatorID, movieID uuid.UUID, kind models.AssetKind) (videohost.UploadCredentials, error) {
	m, err := s.owned(ctx, creatorID, movieID)
	if err != nil {
		return videohost.UploadCredentials{}, err
	}

	a := m.Asset(kind)
	switch {
	case !a.HasExternalID():
		return videohost.UploadCredentials{}, models.NewValidationError("asset", "asset has no upload target")
	case a.Uploaded:
		return videohost.UploadCredentials{}, models.ErrAssetLocked
	case kind == models.AssetTrailer && !m.Body.Uploaded:
		return videohost.UploadCredentials{}, models.NewValidationError("asset", "movie must be uploaded before the trailer")
	}

	return s.host.GetUploadCredentials(*a.ExternalID, s.clock().Add(s.credentialsTTL)), nil
}

func (s *Service) UploadProgress(ctx context.Context, creatorID, movieID uuid.UUID) (AssetProgress, error) {
	if _, err := s.owned(ctx, creatorID, movieID); err != nil {
		return AssetProgress{}, err
	}

	var out AssetProgress
	var err error
	if out.Body, err = s.progress.Get(ctx, movieID, models.AssetBody); err != nil {
		return AssetProgress{}, err
	}
	if out.Trailer, err = s.progress.Get(ctx, movieID, models.AssetTrailer); err != nil {
		return AssetProgress{}, err
	}
	return out, nil
}

func applyInput(m *models.Movie, in models.MovieInput, categoryIDs []uuid.UUID) {
	m.Name = strings.TrimSpace(in.Name)
	m.Synopsis = strings.TrimSpace(in.Synopsis)
	m.AgeTag = in.AgeTag
	m.CategoryIDs = categoryIDs
	if in.PremieresOn != nil {
		m.PremieresOn = in.PremieresOn.UTC()
	}
	m.AvailableTill = nil
	if in.AvailableTill != nil {
		till := in.AvailableTill.UTC()
		m.AvailableTill = &till
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	if in.Downloadable != nil {
		m.Downloadable = *in.Downloadable
	}
}

// attachTarget sets a freshly created host id unless the asset already got one.
func attachTarget(a *models.Asset, id string) {
	if id == "" || a.HasExternalID() {
		return
	}
	a.ExternalID = &id
	a.Status = models.StatusQueued
}

func trailerTitle(name string) string { return name + " - Trailer" }

// progressReporter throttles progress writes to the tracker.
type progressReporter struct {
	svc      *Service
	ctx      context.Context
	movieID  uuid.UUID
	kind     models.AssetKind
	sent     int64
	lastPct  float64
	lastSave time.Time
}

func (p *progressReporter) report(sent, total int64) {
	p.sent = sent
	pct := 0.0
	if total > 0 {
		pct = float64(sent) * 100 / float64(total)
	}
	now := p.svc.clock()
	if pct-p.lastPct < 1 && now.Sub(p.lastSave) < time.Second {
		return
	}
	p.lastPct, p.lastSave = pct, now
	p.set(models.UploadProgress{State: models.UploadLoading, Progress: pct, Sent: sent, Total: total})
}

func (p *progressReporter) set(up models.UploadProgress) {
	up.UpdatedAt = p.svc.clock()
	if err := p.svc.progress.Set(p.ctx, p.movieID, p.kind, up); err != nil && !errors.Is(err, context.Canceled) {
		p.svc.logger.Warn().Err(err).Str("movie_id", p.movieID.String()).Msg("failed to record upload progress")
	}
}
