package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type FavouriteRepo struct {
	db *sqlx.DB
}

func NewFavouriteRepo(db *sqlx.DB) *FavouriteRepo {
	return &FavouriteRepo{db: db}
}

// Replace swaps the user's favourite set in one transaction.
func (r *FavouriteRepo) Replace(ctx context.Context, userID uuid.UUID, categoryIDs []uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM favourite_categories WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("favourite delete: %w", err)
		}

		const q = `
			INSERT INTO favourite_categories (user_id, category_id, position)
			VALUES ($1, $2, $3)
		`
		for i, id := range categoryIDs {
			if _, err := tx.ExecContext(ctx, q, userID, id, i); err != nil {
				return fmt.Errorf("favourite insert: %w", err)
			}
		}
		return nil
	})
}

func (r *FavouriteRepo) CategoryIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `
		SELECT category_id
		FROM favourite_categories
		WHERE user_id = $1
		ORDER BY position
	`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, q, userID); err != nil {
		return nil, fmt.Errorf("favourite list: %w", err)
	}
	return ids, nil
}
