package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	const q = `
		INSERT INTO categories (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.Name, int(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("category create: %w", err)
	}
	return nil
}

func (r *CategoryRepo) Update(ctx context.Context, c *models.Category) error {
	const q = `
		UPDATE categories
		SET name = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.Name, int(c.Status), c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("category update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("category update rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const q = `
		SELECT id, name, status, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	var c models.Category
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("category get by id: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context, f models.CategoryFilter) (models.Page[models.Category], error) {
	var page models.Page[models.Category]

	var conds []string
	var args []any
	if f.ActiveOnly {
		conds = append(conds, fmt.Sprintf("status = %d", models.CategoryActive))
	}
	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	if err := r.db.GetContext(ctx, &page.TotalCount, `SELECT COUNT(*) FROM categories`+where, args...); err != nil {
		return page, fmt.Errorf("category count: %w", err)
	}

	q := `SELECT id, name, status, created_at, updated_at FROM categories` + where + ` ORDER BY name ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	page.Items = []models.Category{}
	if err := r.db.SelectContext(ctx, &page.Items, q, args...); err != nil {
		return page, fmt.Errorf("category list: %w", err)
	}
	return page, nil
}

// CountExisting returns how many of the distinct ids exist.
func (r *CategoryRepo) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`SELECT COUNT(DISTINCT id) FROM categories WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("category count query: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(q), args...); err != nil {
		return 0, fmt.Errorf("category count existing: %w", err)
	}
	return n, nil
}
