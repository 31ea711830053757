package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/movie/progress"
	"github.com/romariotrain/streaming-platform/internal/movie/repository"
	"github.com/romariotrain/streaming-platform/internal/storage/blob"
	"github.com/romariotrain/streaming-platform/internal/videohost"
)

const (
	DefaultCredentialsTTL = 6 * time.Hour
	maxWriteAttempts      = 3
)

type Deps struct {
	Movies         repository.MovieRepository
	Categories     repository.CategoryRepository
	Favourites     repository.FavouriteRepository
	Host           videohost.Host
	Thumbnails     blob.Store
	Progress       progress.Tracker
	Logger         zerolog.Logger
	CredentialsTTL time.Duration
}

type Service struct {
	movies         repository.MovieRepository
	categories     repository.CategoryRepository
	favourites     repository.FavouriteRepository
	host           videohost.Host
	thumbnails     blob.Store
	progress       progress.Tracker
	logger         zerolog.Logger
	credentialsTTL time.Duration
	clock          func() time.Time
	idGen          func() uuid.UUID
}

func New(d Deps) *Service {
	if d.Progress == nil {
		d.Progress = progress.NewMemoryTracker()
	}
	if d.CredentialsTTL <= 0 {
		d.CredentialsTTL = DefaultCredentialsTTL
	}
	return &Service{
		movies:         d.Movies,
		categories:     d.Categories,
		favourites:     d.Favourites,
		host:           d.Host,
		thumbnails:     d.Thumbnails,
		progress:       d.Progress,
		logger:         d.Logger.With().Str("component", "movie_service").Logger(),
		credentialsTTL: d.CredentialsTTL,
		clock:          time.Now,
		idGen:          uuid.New,
	}
}

// mutation edits a freshly loaded movie. changed=false skips the write.
type mutation func(m *models.Movie) (events []models.DomainEvent, changed bool, err error)

// mutate runs a read-modify-write against the record store. The write is a
// version compare-and-swap; on a concurrent write the movie is reloaded and
// fn applied again.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn mutation) (*models.Movie, error) {
	for attempt := 1; ; attempt++ {
		m, err := s.movies.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		events, changed, err := fn(m)
		if err != nil {
			return nil, err
		}
		if !changed {
			return m, nil
		}

		m.UpdatedAt = s.clock()
		err = s.movies.Update(ctx, m, events...)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, models.ErrConflict) || attempt >= maxWriteAttempts {
			return nil, err
		}

		s.logger.Debug().
			Str("movie_id", id.String()).
			Int("attempt", attempt).
			Msg("movie version conflict, retrying")
	}
}

// owned loads a movie and checks it belongs to the creator.
func (s *Service) owned(ctx context.Context, creatorID, movieID uuid.UUID) (*models.Movie, error) {
	if movieID == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	m, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != creatorID {
		return nil, models.ErrForbidden
	}
	return m, nil
}
