package service

import (
	"context"
	"errors"
	"strings"

	"github.com/romariotrain/streaming-platform/internal/movie/domain"
	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// OnVideoStatusNotification reconciles an asynchronous status report from
// the video host. Notifications for ids no movie references are dropped.
// Applying the same notification twice leaves the record unchanged.
func (s *Service) OnVideoStatusNotification(ctx context.Context, externalID string, status models.ProcessingStatus) error {
	externalID = strings.TrimSpace(externalID)
	log := s.logger.With().
		Str("video_id", externalID).
		Str("status", string(status)).
		Logger()

	if externalID == "" {
		log.Warn().Msg("video notification without id, skipped")
		return nil
	}

	m, err := s.movies.FindByExternalID(ctx, externalID)
	if errors.Is(err, models.ErrNotFound) {
		log.Info().Msg("video notification for unknown id, skipped")
		return nil
	}
	if err != nil {
		return err
	}

	// Duration is best-effort; the status update goes through without it.
	var duration *int
	meta, err := s.host.GetVideoMetadata(ctx, externalID)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("fetch video metadata failed")
	case meta.DurationSeconds > 0:
		duration = &meta.DurationSeconds
	}

	updated, err := s.mutate(ctx, m.ID, func(cur *models.Movie) ([]models.DomainEvent, bool, error) {
		a, ok := cur.AssetByExternalID(externalID)
		if !ok {
			return nil, false, nil
		}

		changed := false
		var events []models.DomainEvent
		if a.Status != status && domain.ShouldApply(a.Status, status) {
			events = append(events, models.NewMovieAssetStatusChanged(cur.ID, a.Kind, a.Status, status, s.clock()))
			a.Status = status
			changed = true
		}
		if duration != nil && a.DurationSeconds != *duration {
			a.DurationSeconds = *duration
			changed = true
		}
		return events, changed, nil
	})
	if errors.Is(err, models.ErrNotFound) {
		log.Info().Msg("movie removed before notification applied, skipped")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("apply video notification failed")
		return err
	}

	a, _ := updated.AssetByExternalID(externalID)
	if a != nil {
		log.Info().
			Str("movie_id", updated.ID.String()).
			Str("asset", string(a.Kind)).
			Str("stored_status", string(a.Status)).
			Msg("video notification reconciled")
	}
	return nil
}
