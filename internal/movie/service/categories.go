package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const maxCategoryNameLength = 100

type CategoryInput struct {
	Name   string
	Status *models.CategoryStatus
}

func validateCategory(in CategoryInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", models.NewValidationError("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLength {
		return "", models.NewValidationError("name", "name is too long")
	}
	if in.Status != nil && !in.Status.Valid() {
		return "", models.NewValidationError("status", "status must be 0 or 1")
	}
	return name, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name, err := validateCategory(in)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	c := &models.Category{
		ID:        s.idGen(),
		Name:      name,
		Status:    models.CategoryActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Status != nil {
		c.Status = *in.Status
	}

	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", c.ID.String()).Str("name", c.Name).Msg("category created")
	return c, nil
}

// UpdateCategory renames a category or switches its status. Inactivating
// hides movies that have no other active category.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	name, err := validateCategory(in)
	if err != nil {
		return nil, err
	}

	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if in.Status != nil {
		c.Status = *in.Status
	}
	c.UpdatedAt = s.clock()

	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", c.ID.String()).Int("status", int(c.Status)).Msg("category updated")
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, q PageQuery) (models.Page[models.Category], error) {
	offset := q.normalize()
	return s.categories.List(ctx, models.CategoryFilter{
		Query:  q.Query,
		Limit:  q.Limit,
		Offset: offset,
	})
}

// ActiveCategories lists every active category for end users.
func (s *Service) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	page, err := s.categories.List(ctx, models.CategoryFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
