package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// MovieRepository is the movie record store. Create and Update persist the
// given events atomically with the record (transactional outbox).
//
// Update is a compare-and-swap on m.Version: it fails with
// models.ErrConflict when the stored version differs and increments
// m.Version on success.
type MovieRepository interface {
	Create(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error)
	Update(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error
	List(ctx context.Context, f models.MovieFilter) (models.Page[*models.Movie], error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, f models.CategoryFilter) (models.Page[models.Category], error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int, error)
}

// FavouriteRepository stores the categories an end user picked. Replace
// swaps the whole set; CategoryIDs keeps the order it was given in.
type FavouriteRepository interface {
	Replace(ctx context.Context, userID uuid.UUID, categoryIDs []uuid.UUID) error
	CategoryIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
