package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

var categoryCols = []string{"id", "name", "status", "created_at", "updated_at"}

func TestCategoryRepo_CreateDuplicateName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	c := &models.Category{ID: uuid.New(), Name: "Drama", Status: models.CategoryActive, CreatedAt: fixedTime, UpdatedAt: fixedTime}

	mock.ExpectExec(`INSERT INTO categories`).
		WithArgs(c.ID, "Drama", 1, fixedTime, fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), c))

	mock.ExpectExec(`INSERT INTO categories`).WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, repo.Create(context.Background(), c), models.ErrConflict)
}

func TestCategoryRepo_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectExec(`UPDATE categories`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &models.Category{ID: uuid.New(), Name: "x"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCategoryRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	id := uuid.New()

	mock.ExpectQuery(`FROM categories`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(id.String(), "Drama", 0, fixedTime, fixedTime))
	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.CategoryInactive, got.Status)

	mock.ExpectQuery(`FROM categories`).WithArgs(id).WillReturnRows(sqlmock.NewRows(categoryCols))
	_, err = repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCategoryRepo_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM categories WHERE status = 1 AND name ILIKE $1`)).
		WithArgs("%dra%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY name ASC LIMIT $2`)).
		WithArgs("%dra%", 5).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(id.String(), "Drama", 1, fixedTime, fixedTime))

	page, err := repo.List(context.Background(), models.CategoryFilter{ActiveOnly: true, Query: "dra", Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Items, 1)
	require.Equal(t, id, page.Items[0].ID)
}

func TestCategoryRepo_CountExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id IN ($1, $2)`)).
		WithArgs(a, b).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountExisting(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = repo.CountExisting(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
