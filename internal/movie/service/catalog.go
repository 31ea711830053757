package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/domain"
	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type ListType string

const (
	ListLatest     ListType = "latest"
	ListTrending   ListType = "trending"
	ListByCategory ListType = "by-category"
)

type PageQuery struct {
	Page  int
	Limit int
	Query string
}

// normalize applies paging defaults and returns the row offset.
func (q *PageQuery) normalize() int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	q.Query = strings.TrimSpace(q.Query)
	return (q.Page - 1) * q.Limit
}

type ListQuery struct {
	PageQuery
	Type        ListType
	CategoryIDs []uuid.UUID
}

// ListPublished is the end-user listing. Only movies passing the
// publication gate with an active category are returned.
func (s *Service) ListPublished(ctx context.Context, q ListQuery) (models.Page[*models.Movie], error) {
	offset := q.normalize()

	f := models.MovieFilter{
		Query:     q.Query,
		Published: true,
		Now:       s.clock(),
		Limit:     q.Limit,
		Offset:    offset,
	}
	switch q.Type {
	case "", ListLatest:
		f.Sort, f.Desc = models.SortPremieresOn, true
	case ListTrending:
		f.Sort, f.Desc = models.SortViews, true
	case ListByCategory:
		f.CategoryIDs = dedupe(q.CategoryIDs)
		if len(f.CategoryIDs) == 0 {
			return models.Page[*models.Movie]{}, models.NewValidationError("categoryIds", "at least one category is required")
		}
		f.Sort, f.Desc = models.SortPremieresOn, true
	default:
		return models.Page[*models.Movie]{}, models.NewValidationError("type", "type must be one of latest, trending, by-category, recommended")
	}

	// The store applies the gate against f.Now, so TotalCount and Items
	// always agree.
	return s.movies.List(ctx, f)
}

// GetPublished returns a published movie and counts the view.
func (s *Service) GetPublished(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch domain.Check(m, s.clock()).Reason {
	case domain.ReasonNone:
	case domain.ReasonTrailerProcessing:
		return nil, models.ErrInProgress
	default:
		return nil, models.ErrNotFound
	}

	ok, err := s.hasActiveCategory(ctx, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}

	if err := s.movies.IncrementViews(ctx, m.ID); err != nil {
		s.logger.Warn().Err(err).Str("movie_id", m.ID.String()).Msg("failed to count view")
	} else {
		m.Views++
	}
	return m, nil
}

func (s *Service) hasActiveCategory(ctx context.Context, m *models.Movie) (bool, error) {
	for _, id := range m.CategoryIDs {
		c, err := s.categories.GetByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if c.Status == models.CategoryActive {
			return true, nil
		}
	}
	return false, nil
}

// ListOwn lists a creator's movies regardless of processing state.
func (s *Service) ListOwn(ctx context.Context, creatorID uuid.UUID, q PageQuery) (models.Page[*models.Movie], error) {
	if creatorID == uuid.Nil {
		return models.Page[*models.Movie]{}, models.ErrUnauthorized
	}
	offset := q.normalize()
	return s.movies.List(ctx, models.MovieFilter{
		CreatedBy: &creatorID,
		Query:     q.Query,
		Sort:      models.SortCreatedAt,
		Desc:      true,
		Limit:     q.Limit,
		Offset:    offset,
	})
}

func (s *Service) GetOwn(ctx context.Context, creatorID, movieID uuid.UUID) (*models.Movie, error) {
	return s.owned(ctx, creatorID, movieID)
}

func (s *Service) ListAll(ctx context.Context, q PageQuery) (models.Page[*models.Movie], error) {
	offset := q.normalize()
	return s.movies.List(ctx, models.MovieFilter{
		Query:  q.Query,
		Sort:   models.SortCreatedAt,
		Desc:   true,
		Limit:  q.Limit,
		Offset: offset,
	})
}

// SetMovieStatus is the admin switch that activates or hides a movie.
func (s *Service) SetMovieStatus(ctx context.Context, movieID uuid.UUID, status models.MovieStatus) (*models.Movie, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status", "status must be 0 or 1")
	}
	m, err := s.mutate(ctx, movieID, func(cur *models.Movie) ([]models.DomainEvent, bool, error) {
		if cur.Status == status {
			return nil, false, nil
		}
		ev := models.NewMovieStatusChanged(cur.ID, cur.Status, status, s.clock())
		cur.Status = status
		return []models.DomainEvent{ev}, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movie_id", m.ID.String()).
		Int("status", int(m.Status)).
		Msg("movie status set")
	return m, nil
}
