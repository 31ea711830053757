package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const ListRecommended ListType = "recommended"

// DashboardSection is one shelf of the end-user home screen. HasMore is set
// when the listing has rows past the requested page.
type DashboardSection struct {
	Title   string
	Slug    string
	Movies  []*models.Movie
	HasMore bool
}

type Dashboard struct {
	Categories []models.Category
	Sections   []DashboardSection
}

// SetFavouriteCategories replaces the user's favourite categories and
// returns the active ones.
func (s *Service) SetFavouriteCategories(ctx context.Context, userID uuid.UUID, categoryIDs []uuid.UUID) ([]models.Category, error) {
	if userID == uuid.Nil {
		return nil, models.ErrUnauthorized
	}
	ids := dedupe(categoryIDs)
	if len(ids) == 0 {
		return nil, models.NewValidationError("categoryIds", "categoryIds must have at least one item")
	}
	n, err := s.categories.CountExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if n != len(ids) {
		return nil, models.NewValidationError("categoryIds", "unknown category")
	}

	if err := s.favourites.Replace(ctx, userID, ids); err != nil {
		return nil, fmt.Errorf("replace favourites: %w", err)
	}
	s.logger.Info().Str("user_id", userID.String()).Int("categories", len(ids)).Msg("favourite categories set")

	return s.FavouriteCategories(ctx, userID)
}

// FavouriteCategories lists the user's favourites that are still active.
func (s *Service) FavouriteCategories(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	if userID == uuid.Nil {
		return nil, models.ErrUnauthorized
	}
	ids, err := s.favourites.CategoryIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load favourites: %w", err)
	}

	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		c, err := s.categories.GetByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.Status == models.CategoryActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ListRecommended lists published movies from the user's active favourite
// categories. No favourites means an empty page.
func (s *Service) ListRecommended(ctx context.Context, userID uuid.UUID, q PageQuery) (models.Page[*models.Movie], error) {
	favs, err := s.FavouriteCategories(ctx, userID)
	if err != nil {
		return models.Page[*models.Movie]{}, err
	}
	if len(favs) == 0 {
		return models.Page[*models.Movie]{Items: []*models.Movie{}}, nil
	}

	ids := make([]uuid.UUID, 0, len(favs))
	for _, c := range favs {
		ids = append(ids, c.ID)
	}
	return s.ListPublished(ctx, ListQuery{PageQuery: q, Type: ListByCategory, CategoryIDs: ids})
}

// Dashboard bundles the active categories with the trending, latest and
// recommended shelves for one page. Empty shelves are left out.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, q PageQuery) (*Dashboard, error) {
	if userID == uuid.Nil {
		return nil, models.ErrUnauthorized
	}
	q.normalize()

	var (
		d                             Dashboard
		trending, latest, recommended models.Page[*models.Movie]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Categories, err = s.ActiveCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		trending, err = s.ListPublished(gctx, ListQuery{PageQuery: q, Type: ListTrending})
		return err
	})
	g.Go(func() (err error) {
		latest, err = s.ListPublished(gctx, ListQuery{PageQuery: q, Type: ListLatest})
		return err
	})
	g.Go(func() (err error) {
		recommended, err = s.ListRecommended(gctx, userID, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shown := q.Page * q.Limit
	for _, sec := range []struct {
		title, slug string
		page        models.Page[*models.Movie]
	}{
		{"Trending", string(ListTrending), trending},
		{"Latest", string(ListLatest), latest},
		{"Recommended", string(ListRecommended), recommended},
	} {
		if len(sec.page.Items) == 0 {
			continue
		}
		d.Sections = append(d.Sections, DashboardSection{
			Title:   sec.title,
			Slug:    sec.slug,
			Movies:  sec.page.Items,
			HasMore: sec.page.TotalCount > shown,
		})
	}
	return &d, nil
}
